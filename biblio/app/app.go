package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/config"
	"github.com/Astemirdum/biblio-service/biblio/internal/bookmeta"
	"github.com/Astemirdum/biblio-service/biblio/internal/handler"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository/memory"
	"github.com/Astemirdum/biblio-service/biblio/internal/server"
	"github.com/Astemirdum/biblio-service/biblio/internal/service"
	"github.com/Astemirdum/biblio-service/biblio/migrations"
	"github.com/Astemirdum/biblio-service/pkg/auth0"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/logger"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/Astemirdum/biblio-service/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type membershipSeeder interface {
	PutMembership(ctx context.Context, m model.Membership) error
}

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "biblio")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		repo     repository.Repository
		seeder   membershipSeeder
		statsSvc *service.StatsService
		closers  []func()
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		repo, seeder = store, store
		log.Warn("in-memory storage: data is lost on restart")
	case config.StoragePostgres:
		db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
		if err != nil {
			return fmt.Errorf("db init %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		pgRepo, err := repository.NewRepository(db, cfg.Database.DSN(), log)
		if err != nil {
			return fmt.Errorf("repo %w", err)
		}
		repo, seeder = pgRepo, pgRepo

		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("pgxpool.New %w", err)
		}
		closers = append(closers, pool.Close)
		statsSvc = service.NewStatsService(repository.NewStatsRepository(pool, log), log)
	default:
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	if err := seedStaff(ctx, seeder, cfg.SeedStaff); err != nil {
		return fmt.Errorf("seed staff %w", err)
	}

	opts := []service.Option{
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithMetadataLookup(bookmeta.NewClient(cfg.BookMeta.BaseURL, log)),
	}
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka.NewProducer %w", err)
		}
		closers = append(closers, func() { _ = producer.Close() })
		opts = append(opts, service.WithPublisher(kafka.NewPublisher(producer, kafka.LoanEventsTopic)))

		if statsSvc != nil {
			consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.StatsConsumerGroup)
			if err != nil {
				return fmt.Errorf("kafka.NewConsumer %w", err)
			}
			closers = append(closers, func() { _ = consumer.Close() })
			go kafka.Consume(ctx, consumer, handler.NewConsumer(statsSvc, log), log, kafka.LoanEventsTopic)
		}
	}
	svc := service.NewService(repo, log, opts...)

	hopts := []handler.Option{handler.WithMetrics(reg)}
	if cfg.Auth.Enabled() {
		v, err := auth0.NewValidator(cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth0 %w", err)
		}
		hopts = append(hopts, handler.WithAuthentication(auth0.Middleware(v)))
	} else {
		log.Warn("token check disabled: identity headers are trusted as sent")
	}
	if statsSvc != nil {
		hopts = append(hopts, handler.WithStats(statsSvc))
	}
	h := handler.New(svc, log, hopts...)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))
	// ends /changes streams and the consumer loop before the server drains
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err := srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	log.Info("Graceful shutdown finished")
	return nil
}

func seedStaff(ctx context.Context, seeder membershipSeeder, seats []string) error {
	for _, seat := range seats {
		userID, schoolID, ok := strings.Cut(strings.TrimSpace(seat), "@")
		if !ok || userID == "" || schoolID == "" {
			return fmt.Errorf("bad staff seat %q, want user@school", seat)
		}
		if err := seeder.PutMembership(ctx, model.Membership{
			UserID:   userID,
			SchoolID: schoolID,
			Role:     model.RoleStaff,
		}); err != nil {
			return err
		}
	}
	return nil
}
