package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lrt-predictor/internal/config"
	"lrt-predictor/internal/domain/usecase"
	"lrt-predictor/internal/repository/rabbitmq"
	"lrt-predictor/pkg/logger"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Consume prediction events and write them to the audit log",
	Long: `Run a worker that reads prediction events from RabbitMQ and stores one
audit row per event in postgres. Requires RABBITMQ_HOST and PSQL_HOST.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.RabbitMQ.Enabled() || !cfg.Postgres.Enabled() {
		return errors.New("audit worker needs RABBITMQ_HOST and PSQL_HOST")
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Env: cfg.Log.Env})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.Close()

	repo, err := newAuditRepo(cfg, a)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	a.closers = append(a.closers, conn.Close)

	consumer, err := rabbitmq.NewPredictionConsumer(conn,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.RoutingKey,
		cfg.RabbitMQ.Queue,
		usecase.NewAuditUseCase(repo, log),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to init consumer: %w", err)
	}
	a.closers = append(a.closers, consumer.Close)

	log.Info("audit worker started", zap.String("queue", cfg.RabbitMQ.Queue))
	return consumer.Start(ctx)
}
