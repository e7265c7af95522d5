package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

var signsCmd = &cobra.Command{
	Use:   "signs",
	Short: "List the signs in the catalog",
	Long: `List the stored sign catalog. The bundled signs are seeded on first use.
Changes take effect the next time the tutor starts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return listSigns(cmd.OutOrStdout(), st)
		})
	},
}

var (
	signInstruction string
	signTip         string
)

var signsAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Add a sign; the id must match the model's class id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sign id %q", args[0])
		}
		return withStore(func(st *store.Store) error {
			sign := &store.Sign{Sign: catalog.Sign{
				ID:          id,
				Name:        args[1],
				Instruction: signInstruction,
				Tip:         signTip,
			}}
			if err := st.Signs().Create(sign); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added sign %d %q\n", id, sign.Name)
			return nil
		})
	},
}

var signsRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a sign and its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sign id %q", args[0])
		}
		return withStore(func(st *store.Store) error {
			if err := st.Signs().Delete(id); err != nil {
				return fmt.Errorf("sign %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed sign %d\n", id)
			return nil
		})
	},
}

func init() {
	signsAddCmd.Flags().StringVar(&signInstruction, "instruction", "", "How to perform the sign")
	signsAddCmd.Flags().StringVar(&signTip, "tip", "", "A hint shown alongside the instruction")

	signsCmd.AddCommand(signsAddCmd)
	signsCmd.AddCommand(signsRemoveCmd)
}

// withStore opens the configured store, seeding it on first use.
func withStore(fn func(*store.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if _, err := st.Signs().Seed(catalog.DefaultSigns()); err != nil {
		return fmt.Errorf("seed signs: %w", err)
	}
	return fn(st)
}

func listSigns(w io.Writer, st *store.Store) error {
	signs, err := st.Signs().List()
	if err != nil {
		return err
	}

	summaries, err := st.Completions().Summary()
	if err != nil {
		return err
	}
	completed := make(map[int]int, len(summaries))
	for _, s := range summaries {
		completed[s.SignID] = s.Completions
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("ID", "NAME", "DONE", "INSTRUCTION")
	for _, s := range signs {
		t.Row(strconv.Itoa(s.ID), s.Name, strconv.Itoa(completed[s.ID]), s.Instruction)
	}

	_, err = fmt.Fprintln(w, t.Render())
	return err
}
