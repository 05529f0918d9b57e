// taoshelf-ctl — утилита оператора для task'ов.
//
// Использование:
//
//	taoshelf-ctl [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	task  create, list, show, start, stop
//	log   журнал продавца
//
// Подключение берётся из тех же переменных окружения, что и у демонов
// (DB_URL, RABBITMQ_URL).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/keepalive9s/taobao/internal/cli"
	"github.com/keepalive9s/taobao/internal/config"
	"github.com/keepalive9s/taobao/internal/mq"
	"github.com/keepalive9s/taobao/internal/orchestrator"
	"github.com/keepalive9s/taobao/internal/repo"
	"github.com/keepalive9s/taobao/internal/scheduler"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool
	var (
		backend *cli.Client
		pool    *pgxpool.Pool
		mqConn  *mq.Connection
	)

	rootCmd := &cobra.Command{
		Use:           "taoshelf-ctl",
		Short:         "taoshelf operator tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// CLI пишет в stderr только предупреждения
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			pool, err = repo.NewPool(ctx, cfg.DB.URL, 2)
			if err != nil {
				return err
			}
			tasks := repo.NewTaskRepo(pool)

			mqConn, err = mq.Dial(cfg.MQ.URL, logger)
			if err != nil {
				return fmt.Errorf("connect to RabbitMQ: %w", err)
			}

			enqueuer := scheduler.New(scheduler.Config{
				Tasks:     tasks,
				Publisher: mq.NewPublisher(mqConn, logger),
				Logger:    logger,
			})
			stopper := orchestrator.New(orchestrator.Config{Tasks: tasks, Logger: logger})

			backend = cli.NewClient(tasks, repo.NewLogRepo(pool), enqueuer, stopper)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if mqConn != nil {
				_ = mqConn.Close()
			}
			if pool != nil {
				pool.Close()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	backendFn := func() cli.Backend { return backend }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(backendFn, outputFn),
		cli.NewLogCmd(backendFn, outputFn),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
