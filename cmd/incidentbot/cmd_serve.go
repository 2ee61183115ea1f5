package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/incidentbot/internal/api"
	"github.com/user/incidentbot/internal/bot"
	"github.com/user/incidentbot/internal/broadcast"
	"github.com/user/incidentbot/internal/config"
	"github.com/user/incidentbot/internal/delivery"
	"github.com/user/incidentbot/internal/dialogue"
	"github.com/user/incidentbot/internal/gateway"
	"github.com/user/incidentbot/internal/metrics"
	"github.com/user/incidentbot/internal/mirror/discord"
	"github.com/user/incidentbot/internal/mirror/natspub"
	"github.com/user/incidentbot/internal/mirror/slack"
	"github.com/user/incidentbot/internal/scheduler"
	"github.com/user/incidentbot/internal/store"
	"github.com/user/incidentbot/internal/telegram"
	"github.com/user/incidentbot/internal/types"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the incidentbot daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is not set (run 'incidentbot setup' or export TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Digest.Schedule != "" {
		if err := scheduler.Validate(cfg.Digest.Schedule); err != nil {
			return fmt.Errorf("digest.schedule: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()

	// Gateway and Telegram transport
	gw := gateway.New(int64(cfg.MaxConcurrent))
	adapter, err := telegram.New(cfg.Telegram.Token, gw)
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}

	// Mirrors
	mirrors, targets, closeMirrors, err := setupMirrors(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeMirrors()

	bc := broadcast.New(st, adapter,
		broadcast.WithMirrors(mirrors, targets...),
		broadcast.WithMetrics(m),
	)
	engine := dialogue.New(dialogue.NewSessions(), st, bc, m)
	handler := bot.New(bot.Config{
		AdminID:      types.SenderID(cfg.Telegram.AdminID),
		HistoryLimit: cfg.History.Limit,
		ChunkSize:    cfg.History.ChunkSize,
	}, st, engine, m)

	gw.Queue.SetProcessor(adapter.Processor(handler))
	gw.Start(ctx)
	defer gw.Stop()

	go adapter.Start(ctx)

	slog.Info("incidentbot started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"admin_id", cfg.Telegram.AdminID,
		"database", cfg.Database.Driver,
		"mirrors", targets,
		"pid_file", pidPath,
	)

	if cfg.Telegram.AdminID == 0 {
		slog.Warn("no administrator configured, admin commands are disabled",
			"hint", "incidentbot config set telegram.admin_id <your telegram id>")
	}

	// History digest
	if cfg.Digest.Schedule != "" && cfg.Telegram.AdminID == 0 {
		slog.Warn("digest skipped, it is delivered to the administrator", "schedule", cfg.Digest.Schedule)
	} else if cfg.Digest.Schedule != "" {
		sched := scheduler.New(scheduler.Digest(cfg.Digest.Schedule, st, adapter,
			cfg.Telegram.AdminID, cfg.History.Limit, cfg.History.ChunkSize))
		sched.Start(ctx)
		defer sched.Stop()
		slog.Info("scheduler started", "schedule", cfg.Digest.Schedule)
	}

	// HTTP API
	if cfg.HTTP.Enabled {
		httpServer := &http.Server{
			Addr: cfg.HTTP.Listen,
			Handler: api.NewServer(api.Deps{
				Store:    st,
				Sessions: engine.Sessions(),
				Metrics:  m,
				Token:    cfg.HTTP.Token,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		cancel()
		return nil
	}
}

// openStore opens the configured database, retrying transient connection
// failures such as a MySQL server that is still starting.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	var st *store.Store
	err := gateway.DefaultRetryPolicy().Execute(ctx, func() error {
		var err error
		st, err = store.Open(store.Options{
			Driver:  cfg.Database.Driver,
			DSN:     cfg.Database.DSN,
			DataDir: cfg.DataDir,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// setupMirrors registers a delivery handler for every configured mirror and
// returns the targets to broadcast to.
func setupMirrors(ctx context.Context, cfg *config.Config) (*delivery.Registry, []string, func(), error) {
	reg := delivery.NewRegistry()
	var targets []string
	closeFn := func() {}

	if cfg.Slack.BotToken != "" && cfg.Slack.ChannelID != "" {
		sm, err := slack.New(slack.Opts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, nil, closeFn, err
		}
		reg.Register(slack.Prefix, sm.Deliver)
		targets = append(targets, sm.Target())
	}

	if cfg.Discord.BotToken != "" && cfg.Discord.ChannelID != "" {
		dm, err := discord.New(discord.Opts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, nil, closeFn, err
		}
		reg.Register(discord.Prefix, dm.Deliver)
		targets = append(targets, dm.Target())
	}

	if cfg.NATS.URL != "" {
		pub, err := natspub.Connect(ctx, cfg.NATS.URL, cfg.NATS.Subject, nil)
		if err != nil {
			return nil, nil, closeFn, err
		}
		reg.Register(natspub.Prefix, pub.Deliver)
		targets = append(targets, pub.Target())
		closeFn = func() {
			if err := pub.Close(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		}
	}

	return reg, targets, closeFn, nil
}
