package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"choreboard/internal/config"
	"choreboard/internal/database"
	"choreboard/internal/engine"
	"choreboard/internal/logging"
	"choreboard/internal/notify"
	"choreboard/internal/server"
)

func main() {
	// A missing .env file is fine; environment wins over it either way.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "choreboard",
		Short:         "Household chore scheduling and assignment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newEvaluateCommand(&configPath))
	root.AddCommand(newDistributeCommand(&configPath))
	root.AddCommand(newWeeklyCommand(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(configPath string) (*config.Config, *engine.Engine, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}

	e := engine.New(db, engine.Config{
		ClaimLimit:           cfg.ClaimLimit,
		UndoWindow:           cfg.UndoWindow,
		OneTimeArchiveWindow: cfg.OneTimeArchiveWindow,
		ConversionUndoWindow: cfg.ConversionUndoWindow,
	}, nil, logger.With("component", "engine"))

	return cfg, e, func() { db.Close() }, nil
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server with the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel)

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			engineCfg := engine.Config{
				ClaimLimit:           cfg.ClaimLimit,
				UndoWindow:           cfg.UndoWindow,
				OneTimeArchiveWindow: cfg.OneTimeArchiveWindow,
				ConversionUndoWindow: cfg.ConversionUndoWindow,
			}

			// Engine -> dispatcher -> websocket hub. The engine is built
			// first without a notifier, then rewired once the hub exists.
			e := engine.New(db, engineCfg, nil, logger.With("component", "engine"))
			srv := server.New(db, e, logger)

			dispatcher := notify.NewDispatcher(srv.Hub(), logger.With("component", "notify"))
			e.SetNotifier(dispatcher)

			ctx := context.Background()
			dispatcher.Start(ctx)
			defer dispatcher.Stop()

			weekday, err := cfg.Weekday()
			if err != nil {
				return err
			}
			sched := engine.NewScheduler(e, engine.SchedulerConfig{
				Interval:     60 * time.Second,
				EvaluateAt:   cfg.EvaluateAt,
				DistributeAt: cfg.DistributeAt,
				WeekEndDay:   weekday,
			})
			sched.Start(ctx)
			defer sched.Stop()

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("choreboard listening", "port", cfg.Port)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

// parseDayFlag accepts YYYY-MM-DD, defaulting to now when empty.
func parseDayFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func newEvaluateCommand(configPath *string) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the daily evaluation",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayFlag(date)
			if err != nil {
				return err
			}
			_, e, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := e.RunDailyEvaluation(cmd.Context(), day)
			if err != nil {
				return err
			}
			fmt.Printf("evaluated %s: created=%d duplicates=%d skipped=%d errors=%d spawned=%d archived=%d\n",
				res.Date, res.Created, res.Duplicates, res.Skipped, res.Errors, res.Spawned, res.Archived)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "evaluation date (YYYY-MM-DD, default today)")
	return cmd
}

func newDistributeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute",
		Short: "Run the distribution sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, e, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := e.RunDistribution(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("distributed: assigned=%d blocked=%d skipped=%d\n", res.Assigned, res.Blocked, res.Skipped)
			return nil
		},
	}
}

func newWeeklyCommand(configPath *string) *cobra.Command {
	var weekEnd string
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Run the weekly aggregation",
		RunE: func(cmd *cobra.Command, args []string) error {
			end, err := parseDayFlag(weekEnd)
			if err != nil {
				return err
			}
			_, e, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := e.RunWeeklyAggregation(cmd.Context(), end)
			if err != nil {
				return err
			}
			fmt.Printf("week %s: snapshots=%d skipped=%d\n", res.WeekEnding, res.Snapshots, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&weekEnd, "week-end", "", "week end date (YYYY-MM-DD, default today)")
	return cmd
}
