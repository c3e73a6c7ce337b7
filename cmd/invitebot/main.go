package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/database"
	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/core/telegram"
	tgsender "github.com/m3rciful/invitebot/core/telegram/sender"
	"github.com/m3rciful/invitebot/invite/bot"
	"github.com/m3rciful/invitebot/invite/generator"
	"github.com/m3rciful/invitebot/invite/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := coreconfig.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.L.LogAttrs(ctx, slog.LevelError, "fatal",
			slog.String("component", "app"),
			slog.String("event", "fatal"),
			slog.String("err", err.Error()),
		)
		_ = logger.Shutdown()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *coreconfig.Config) error {
	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := generator.New(ctx, cfg.Generator)
	if err != nil {
		return err
	}

	files := bot.NewTeleFileResolver()

	opts := bot.Options{
		Storage:        storage.NewPostgres(db),
		Generator:      gen,
		Files:          files,
		Styles:         cfg.Invite.Styles,
		PublicBaseURL:  cfg.Invite.PublicBaseURL,
		MaxUploadBytes: cfg.Invite.MaxUploadBytes,
	}
	if mirror := storage.NewBlobMirror(cfg.Blob); mirror != nil {
		opts.Mirror = mirror
	}

	engine, err := bot.NewEngine(opts)
	if err != nil {
		return err
	}

	reg := telegram.NewRegistry()
	routes := bot.Register(reg, engine)

	return telegram.RunTelegram(ctx, telegram.RunOptions{
		Config:   cfg,
		Registry: reg,
		// one worker keeps per-user reply order
		DispatcherOptions: tgsender.Options{Workers: 1},
		Middlewares:       telegram.DefaultMiddlewares(cfg, nil),
		Routes:            routes,
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			files.Attach(rt.Bot)
			return nil
		},
	})
}
