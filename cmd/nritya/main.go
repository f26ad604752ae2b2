package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ayusman/nritya/internal/app"
	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/logging"
	"github.com/ayusman/nritya/internal/overlay"
	"github.com/ayusman/nritya/internal/store"
	"github.com/ayusman/nritya/internal/tray"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "nritya:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.File != "" {
		log.Info().Str("file", cfg.File).Msg("config loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, app.Options{Logger: log})
	if err := a.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	go func() {
		if err := a.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("control API stopped")
		}
	}()

	// A failed restore leaves the session off; the surfaces show it.
	if err := a.Controller().Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("restore preference")
	}

	switch cfg.UI.Mode {
	case config.UITray:
		runTray(ctx, stop, a, cfg, log)
	case config.UIWindow:
		runWindow(ctx, stop, a, log)
	default:
		log.Info().Msg("running headless; interrupt to quit")
		<-ctx.Done()
	}
	return nil
}

func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, cfg *config.Config, log zerolog.Logger) {
	ctrl := a.Controller()
	t := tray.New(ctrl.Enabled())

	t.OnToggle(func(enabled bool) {
		if err := ctrl.Set(ctx, enabled); err != nil {
			log.Warn().Err(err).Bool("enabled", enabled).Msg("toggle")
		}
	})
	t.OnSettings(func() {
		log.Info().Str("url", "http://localhost"+cfg.Server.Addr+"/api/control").Msg("control API")
	})
	t.OnQuit(quit)

	ctrl.OnChange(t.SetEnabled)
	a.OnStatus(t.SetStatus)
	a.OnClick(func(c *store.Click) { t.SetLastClick(app.LastClickLabel(c)) })

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func runWindow(ctx context.Context, quit context.CancelFunc, a *app.App, log zerolog.Logger) {
	ctrl := a.Controller()
	fa := fyneapp.New()

	w := overlay.NewWindow(fa, a.Hub(), ctrl.Enabled(), func(enabled bool) {
		// fyne calls back on its own goroutine; the session start blocks
		// on camera and model setup.
		go func() {
			if err := ctrl.Set(ctx, enabled); err != nil {
				log.Warn().Err(err).Bool("enabled", enabled).Msg("toggle")
			}
		}()
	})
	ctrl.OnChange(w.SetEnabled)
	w.OnClosed(quit)
	w.Start()

	go func() {
		<-ctx.Done()
		fa.Quit()
	}()
	w.ShowAndRun()
}
