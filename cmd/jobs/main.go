// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/entitlements/internal/auth"
	"github.com/carterperez-dev/entitlements/internal/config"
	"github.com/carterperez-dev/entitlements/internal/core"
	"github.com/carterperez-dev/entitlements/internal/jobs"
	"github.com/carterperez-dev/entitlements/internal/notify"
	"github.com/carterperez-dev/entitlements/internal/packages"
	"github.com/carterperez-dev/entitlements/internal/plan"
	"github.com/carterperez-dev/entitlements/internal/quota"
	"github.com/carterperez-dev/entitlements/internal/user"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "jobs",
	Short:         "Maintenance jobs for the entitlements service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var resetCmd = &cobra.Command{
	Use:   jobs.JobResetMonthly,
	Short: "Refill monthly quota on every live package",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			_, err := jobs.Execute(ctx, rt.reset, rt.metrics, rt.logger)
			return err
		})
	},
}

var notifyCmd = &cobra.Command{
	Use:   jobs.JobNotifyExpiring,
	Short: "Warn owners of packages about to expire",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			_, err := jobs.Execute(ctx, rt.expiry, rt.metrics, rt.logger)
			return err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every job on its schedule until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			jobsCfg := rt.cfg.Jobs

			s := jobs.NewScheduler(rt.metrics, rt.logger)
			s.Add(rt.reset, jobs.MonthlyAt(1, jobsCfg.ResetHour, jobsCfg.ResetMinute))
			s.Add(rt.expiry, jobs.DailyAt(jobsCfg.NotifyHour, 0))

			go core.RefreshDNS(ctx)
			s.Run(ctx)
			return nil
		})
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen <private.pem> <public.pem>",
	Short: "Generate the ES256 key pair used to sign session tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := auth.GenerateKeyPair(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("wrote %s and %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"config.yaml",
		"path to config file",
	)

	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(keygenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("job failed", "error", err)
		stop()
		os.Exit(1)
	}
}

type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *core.Metrics
	reset   *jobs.MonthlyReset
	expiry  *jobs.ExpiryNotifier
}

// withRuntime connects to the database, builds both jobs and hands them
// to fn. Connections are closed when fn returns.
func withRuntime(
	ctx context.Context,
	fn func(ctx context.Context, rt *runtime) error,
) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	metrics := core.GetMetrics()

	userSvc := user.NewService(user.NewRepository(db.DB))
	planSvc := plan.NewService(plan.NewRepository(db.DB))
	pkgRepo := packages.NewRepository(db.DB)

	notifySvc := notify.NewService(
		notify.NewRepository(db.DB),
		notify.NewSender(cfg.SMS, logger),
		logger,
	)

	ledger := quota.NewLedger(quota.NewRepository(db.DB), metrics, logger)

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		reset:   jobs.NewMonthlyReset(ledger),
		expiry: jobs.NewExpiryNotifier(
			cfg.Jobs,
			pkgRepo,
			userSvc,
			planSvc,
			notifySvc,
			logger,
		),
	}

	return fn(ctx, rt)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
