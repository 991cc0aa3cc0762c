// mosaicedit is the desktop editor: place blur regions over a video, give
// each a time window, and watch the blurred result while it plays.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mosaicedit/cmd/mosaicedit/internal/theme"
	"mosaicedit/cmd/mosaicedit/internal/ui"
	"mosaicedit/internal/config"
	"mosaicedit/internal/health"
	"mosaicedit/internal/logging"
	"mosaicedit/internal/metrics"
	"mosaicedit/internal/store"
)

var (
	configPath = flag.String("config", "", "path to config file")
	projectID  = flag.String("project", "", "open a saved project")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mosaicedit [-config path] [-project id] [frames-dir|image]")
		flag.PrintDefaults()
	}
	flag.Parse()

	go func() {
		w := new(app.Window)
		w.Option(app.Title("mosaicedit"))
		w.Option(app.Size(unit.Dp(1280), unit.Dp(860)))

		if err := run(w); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(w *app.Window) error {
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if _, _, err := config.LoadOrCreate(path); err != nil {
		return err
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	defer loader.Close()
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lcfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return err
	}
	logger, err := logging.New(lcfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)

	db, err := store.OpenWithOptions(cfg.Storage.Path, store.Options{BusyTimeout: cfg.BusyTimeout(), Logger: logger.WithComponent("store").Logger})
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checker := health.NewChecker()
	checker.RegisterFunc("storage", true, health.DatabaseCheck(db.DB().PingContext))
	checker.RegisterFunc("config", false, health.ErrorCheck(func() error {
		return loader.Config().Validate()
	}))
	stopMetrics := serveMetrics(cfg.Metrics.Addr, reg, checker, logger)
	defer stopMetrics()

	ed := ui.New(ui.Options{
		Theme:      theme.NewTheme(material.NewTheme()),
		Config:     cfg,
		DB:         db,
		Logger:     logger.WithComponent("ui").Logger,
		Metrics:    metrics.NewCompositor(reg),
		Invalidate: w.Invalidate,
	})
	defer ed.Close()

	loader.OnChange(func(c *config.Config) {
		logger.Info("config reloaded", "path", path)
		if level, err := logging.ParseLevel(c.Logging.Level); err == nil && level != logger.Level() {
			logger.SetLevel(level)
		}
		ed.ApplyConfig(c)
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("config watch disabled", "err", err)
	} else {
		go func() {
			for err := range loader.Errors() {
				logger.Warn("config reload", "err", err)
			}
		}()
	}

	switch {
	case *projectID != "":
		if err := ed.LoadProject(*projectID); err != nil {
			return err
		}
	case flag.NArg() > 0:
		if err := ed.Open(flag.Arg(0)); err != nil {
			return err
		}
	}

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			ed.Frame(e.Now)
			ed.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

// serveMetrics exposes reg on addr/metrics and the checker on
// addr/healthz. An empty addr serves nothing.
func serveMetrics(addr string, reg *prometheus.Registry, checker *health.Checker, logger *logging.Logger) (stop func()) {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/healthz", checker.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
