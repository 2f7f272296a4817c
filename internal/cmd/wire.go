package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lrt-predictor/internal/config"
	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/internal/domain/usecase"
	"lrt-predictor/internal/inference"
	"lrt-predictor/internal/repository/dynamo"
	"lrt-predictor/internal/repository/memory"
	psqlRepo "lrt-predictor/internal/repository/psql"
	"lrt-predictor/internal/repository/rabbitmq"
	"lrt-predictor/internal/repository/redis"
	"lrt-predictor/internal/repository/s3"
	"lrt-predictor/pkg/client/psql"
	redisGo "lrt-predictor/pkg/client/redis"
	s3ClientGo "lrt-predictor/pkg/client/s3"
	"lrt-predictor/pkg/middleware"
)

type app struct {
	UseCase     *usecase.PredictionUseCase
	RateLimiter gin.HandlerFunc

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func newS3Repo(cfg *config.Config) (*s3.S3Repo, error) {
	if !cfg.S3.Enabled() {
		return nil, nil
	}
	storage, err := s3ClientGo.NewS3Client(s3ClientGo.Config{
		Endpoint:  cfg.S3.Endpoint(),
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		Secure:    cfg.S3.Secure,
	})
	if err != nil {
		return nil, err
	}
	return s3.NewS3Repo(storage), nil
}

func loadPipeline(ctx context.Context, cfg *config.Config, s3Repo *s3.S3Repo) (*inference.Pipeline, error) {
	loader := &inference.Loader{}
	if s3Repo != nil {
		loader.Objects = s3Repo
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	return loader.LoadPipeline(ctx, inference.Config{
		ScalerURI:         cfg.Artifacts.ScalerPath,
		ModelURI:          cfg.Artifacts.ModelPath,
		Backend:           cfg.Artifacts.Backend,
		SageMakerEndpoint: cfg.Artifacts.SageMakerEndpoint,
		AWSRegion:         cfg.Artifacts.AWSRegion,
	})
}

// buildApp connects every configured backend. Artifacts are loaded first so
// a bad model fails startup before any connection is opened.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	s3Repo, err := newS3Repo(cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipeline(ctx, cfg, s3Repo)
	if err != nil {
		return nil, err
	}
	logger.Info("artifacts loaded",
		zap.String("scaler", cfg.Artifacts.ScalerPath),
		zap.String("backend", cfg.Artifacts.Backend),
		zap.String("model", cfg.Artifacts.ModelPath))

	var redisClient *goredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redisGo.NewRedisClient(ctx, redisGo.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisClient.Close)
	}

	var history usecase.HistoryRepo
	switch cfg.Session.Store {
	case config.StoreRedis:
		history = redis.NewRedisRepo(redisClient, cfg.Session.TTL)
	case config.StoreDynamoDB:
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Artifacts.AWSRegion)})
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		history = dynamo.NewHistoryRepo(dynamodb.New(sess), cfg.Session.DynamoDBTable, cfg.Session.TTL)
	default:
		history = memory.NewHistoryRepo(cfg.Session.TTL)
	}

	if cfg.RateLimit > 0 {
		a.RateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RedisClient: redisClient,
			Limit:       cfg.RateLimit,
			Window:      time.Second,
			KeyPrefix:   "rl:",
		})
	}

	// With a broker configured the audit worker owns the audit log.
	var audit usecase.AuditRepo
	if cfg.Postgres.Enabled() && !cfg.RabbitMQ.Enabled() {
		repo, err := newAuditRepo(cfg, a)
		if err != nil {
			return nil, err
		}
		audit = repo
	}

	var publisher usecase.Publisher
	if cfg.RabbitMQ.Enabled() {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		a.closers = append(a.closers, conn.Close)

		pub, err := rabbitmq.NewPredictionPublisher(conn, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to init publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		publisher = pub
	}

	var uploader usecase.S3Uploader
	if s3Repo != nil {
		uploader = s3Repo
	}

	a.UseCase = usecase.NewPredictionUseCase(pipeline, history, uploader, audit, publisher, logger)
	ok = true
	return a, nil
}

// newAuditRepo connects to postgres, migrates the audit table and registers
// the pool with a's closers.
func newAuditRepo(cfg *config.Config, a *app) (*psqlRepo.GormPredictionRepo, error) {
	db, err := psql.NewPostgresDB(psql.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SslMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := db.AutoMigrate(&entity.PredictionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate prediction records: %w", err)
	}
	return psqlRepo.NewGormPredictionRepo(db), nil
}
