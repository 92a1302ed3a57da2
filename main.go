package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"prismbot/bot"
	"prismbot/config"
	"prismbot/events"
	"prismbot/handlers"
	"prismbot/lang"
	"prismbot/logging"
	"prismbot/state"
	"prismbot/storage"
	"prismbot/web"
)

const promptPruneInterval = 30 * time.Second

func main() {
	configPath := flag.StringP("config", "c", "", "Path to a YAML config file")
	envFile := flag.String("env-file", ".env", "Dotenv file holding DISCORD_BOT_TOKEN")
	logLevel := flag.String("log-level", "", "Override log.level (debug, info, warn, error)")
	cleanup := flag.Bool("cleanup", false, "Remove slash commands on shutdown")
	flag.Parse()

	if err := run(*configPath, *envFile, *logLevel, *cleanup); err != nil {
		fmt.Fprintln(os.Stderr, "prismbot:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, logLevel string, cleanup bool) error {
	cfg, err := config.LoadConfig(configPath, envFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			log.Error("Bot token missing", "err", err)
		}
		return err
	}

	catalog := lang.New()
	if cfg.Lang.Path != "" {
		if err := catalog.Load(cfg.Lang.Path); err != nil {
			log.Warn("Using built-in messages", "component", "lang", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	cases := storage.Open(openCtx, cfg.Database, log)
	cancel()
	defer cases.Close()

	publisher := events.Open(cfg.Events, log)
	defer publisher.Close()

	var srv *web.Server
	if cfg.HTTP.Enabled {
		srv = web.NewServer(cfg.HTTP.Addr, log)
		srv.Start()
	}

	b, err := bot.New(cfg, log)
	if err != nil {
		return err
	}
	h := handlers.New(handlers.Deps{
		API:    b.Session,
		Store:  state.New(),
		Config: cfg,
		Lang:   catalog,
		Log:    log,
		Cases:  cases,
		Events: publisher,
	})
	h.Register(b.Session)

	if err := b.Start(); err != nil {
		return err
	}
	defer b.Stop()
	defer h.Close()

	regCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := b.RegisterCommands(regCtx, h.SlashCommands()); err != nil {
		log.Error("Slash command registration failed, prefix commands still work", "err", err)
	}
	cancel()

	sched := bot.NewScheduler(log,
		bot.Task{Name: "ticket-idle-sweep", Interval: cfg.Tickets.SweepInterval, Run: h.SweepIdleTickets},
		bot.Task{Name: "prompt-prune", Interval: promptPruneInterval, Run: h.PrunePrompts},
	)
	sched.Start()

	log.Info("Bot is running, press Ctrl+C to exit", "prefix", cfg.Discord.Prefix)
	<-ctx.Done()
	log.Info("Shutting down")

	sched.Stop()
	if cleanup {
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := b.CleanupCommands(cctx); err != nil {
			log.Warn("Failed to clean up commands", "err", err)
		}
		cancel()
	}
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("Liveness endpoint shutdown failed", "component", "web", "err", err)
		}
		cancel()
	}
	return nil
}
