package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/replay"
)

var replayJSON bool

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.json|dir>...",
	Short: "Replay recorded detection sequences through the game engine",
	Long: `Replay feeds each fixture's frames through a fresh game engine and
checks every frame's expectation. It exits non-zero when any expectation fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fixtures, err := loadFixtures(args)
		if err != nil {
			return err
		}

		failed := 0
		results := make([]replay.Result, 0, len(fixtures))
		for _, f := range fixtures {
			res, err := replay.Run(f)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			if res.Failed() {
				failed++
			}
			results = append(results, res)
		}

		out := cmd.OutOrStdout()
		if replayJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			printResults(out, results)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d fixtures failed", failed, len(fixtures))
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print results as JSON")
}

func loadFixtures(args []string) ([]*replay.Fixture, error) {
	var fixtures []*replay.Fixture
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			dir, err := replay.LoadDir(arg)
			if err != nil {
				return nil, err
			}
			fixtures = append(fixtures, dir...)
			continue
		}
		f, err := replay.Load(arg)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixtures found")
	}
	return fixtures, nil
}

func printResults(w io.Writer, results []replay.Result) {
	pass := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("PASS")
	fail := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Render("FAIL")

	for _, res := range results {
		status := pass
		if res.Failed() {
			status = fail
		}
		fmt.Fprintf(w, "%s  %s  (%d frames, score %d/%d)\n",
			status, res.Name, res.Steps, res.Final.Score, res.Final.Attempts)
		for _, m := range res.Mismatches {
			fmt.Fprintf(w, "      %s\n", m)
		}
	}
}
