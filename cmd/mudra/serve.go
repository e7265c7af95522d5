package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hook"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

var (
	withTray bool
	noCamera bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutor with its web interface",
	RunE:  runServe,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray menu")
		cmd.Flags().BoolVar(&noCamera, "no-camera", false, "Run without opening the webcam")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Named("mudra")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager(metrics.WithEnabled(cfg.MetricsEnabled))

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cat, err := loadCatalog(ctx, st, log)
	if err != nil {
		return err
	}

	frames := capture.NewFrameBuffer()
	deps := app.Deps{
		Catalog: cat,
		Frames:  frames,
		Metrics: m,
		Logger:  log.Named("app"),
	}
	if !noCamera {
		opts := capture.DefaultOptions()
		opts.DeviceID = cfg.CameraID
		opts.FPS = cfg.FPS
		opts.Mirror = cfg.Mirror
		deps.Camera = capture.NewCamera(opts)
	}

	dcfg := detector.DefaultConfig()
	dcfg.MinConfidence = cfg.DetectorConfidence
	dcfg.Script = cfg.DetectorScript
	dcfg.Python = cfg.DetectorPython
	dcfg.Model = cfg.DetectorModel
	if det, err := detector.NewYOLODetector(dcfg); err != nil {
		log.Warn(ctx, "running without a detector", logger.Error(err))
	} else {
		deps.Detector = det
	}

	tutor, err := app.New(app.Config{
		Tunables:      cfg.Tunables(),
		NextSignDelay: cfg.NextSignDelay(),
		BatchBuffer:   cfg.BatchBuffer,
		FPS:           cfg.FPS,
	}, deps)
	if err != nil {
		return err
	}

	hub := server.NewEventHub(m, log.Named("ws"))
	hooks := hook.NewManager(cfg.HookDir)
	if err := hooks.Discover(); err != nil {
		log.Warn(ctx, "some hooks were skipped", logger.Error(err))
	}
	runner := hook.NewRunner(hooks, hook.NewExecutor(cfg.HookTimeout()), m, log.Named("hook"))
	defer runner.Close()

	tutor.AddSink(render.NewConsole(os.Stdout))
	tutor.AddSink(store.NewHistorySink(st.Completions(), log.Named("history")))
	tutor.AddSink(runner)
	tutor.AddSink(hub)

	var tr *tray.Tray
	if withTray {
		tr = newTray(ctx, tutor, cfg.Addr, stop)
		tutor.AddSink(tr)
	}

	if err := tutor.Start(ctx); err != nil {
		if deps.Camera == nil {
			return err
		}
		// Camera failures already went to the sinks; the web interface
		// stays usable without one.
		log.Warn(ctx, "camera unavailable", logger.Error(err))
	}
	defer tutor.Stop()

	srv := server.New(server.Config{
		StaticDir: findStaticDir(cfg.StaticDir),
		App:       tutor,
		Store:     st,
		Frames:    frames,
		Hub:       hub,
		Metrics:   m,
		Logger:    log.Named("http"),
	})

	log.Info(ctx, "serving", logger.String("addr", cfg.Addr), logger.Int("signs", cat.Len()),
		logger.Int("hooks", len(hooks.List())))

	if tr == nil {
		return srv.Run(ctx, cfg.Addr)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Run(ctx, cfg.Addr)
		tr.Quit()
	}()
	// The tray needs the main goroutine on macOS.
	tr.Run()
	stop()
	return <-errc
}

// loadCatalog seeds the store with the bundled signs on first run and
// builds the catalog from what is stored.
func loadCatalog(ctx context.Context, st *store.Store, log logger.Logger) (*catalog.Catalog, error) {
	seeded, err := st.Signs().Seed(catalog.DefaultSigns())
	if err != nil {
		return nil, fmt.Errorf("seed signs: %w", err)
	}
	if seeded {
		log.Info(ctx, "seeded sign catalog", logger.String("db", st.Path()))
	}

	cat, err := st.Signs().Catalog()
	if err != nil {
		return nil, fmt.Errorf("load signs: %w", err)
	}
	if cat.Len() == 0 {
		log.Warn(ctx, "no signs stored, using the bundled catalog")
		return catalog.Default(), nil
	}
	return cat, nil
}

func newTray(ctx context.Context, tutor *app.App, addr string, quit func()) *tray.Tray {
	log := logger.Named("tray")
	tr := tray.New(false)

	tr.OnCamera(func(active bool) {
		if !active {
			tutor.StopCamera()
			return
		}
		if err := tutor.StartCamera(); err != nil {
			log.Warn(ctx, "start camera", logger.Error(err))
		}
	})
	tr.OnNext(func() {
		if _, err := tutor.NextSign(); err != nil {
			log.Warn(ctx, "next sign", logger.Error(err))
		}
	})
	tr.OnOpen(func() {
		if err := openBrowser(browserURL(addr)); err != nil {
			log.Warn(ctx, "open browser", logger.Error(err))
		}
	})
	tr.OnQuit(quit)
	return tr
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	name := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	}
	return exec.Command(name, url).Start()
}

// findStaticDir returns dir when set, otherwise the first web directory
// found next to the working directory or in the data directory.
func findStaticDir(dir string) string {
	if dir != "" {
		return dir
	}

	candidates := []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
