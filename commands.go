package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quietcircle/community/config"
	"github.com/quietcircle/community/models"
	"github.com/quietcircle/community/routes"
	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the outbox relayer and support reconciler",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := config.InitDatabase(models.All()...)
		utils.Logger.Info("schema migrated", zap.String("driver", config.Get().DBDriver))
		return closeDB(db)
	},
}

var seedTagsCmd = &cobra.Command{
	Use:   "seed-tags",
	Short: "Insert the tag catalog rows that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := config.InitDatabase(models.All()...)
		defer closeDB(db)
		n, err := services.NewTagCatalog(services.DefaultTagTypes...).Seed(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("seed tags: %w", err)
		}
		utils.Logger.Info("tags seeded", zap.Int64("inserted", n))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair cached support counts once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		db := config.InitDatabase(models.All()...)
		defer closeDB(db)
		svc := services.NewRegistry(db, services.Options{CommentMaxLength: cfg.CommentMaxLength})
		r := services.NewSupportReconciler(db, svc.Supports, cfg.ReconcileBatchSize, 0)
		fixed, err := r.ReconcileOnce(cmd.Context())
		if err != nil {
			return err
		}
		utils.Logger.Info("reconcile finished", zap.Int("posts_fixed", fixed))
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	db := config.InitDatabase(models.All()...)
	defer closeDB(db)
	defer utils.CloseRedis()

	svc := services.NewRegistry(db, services.Options{CommentMaxLength: cfg.CommentMaxLength})
	if cfg.SeedTagsOnStart {
		if _, err := svc.Tags.Seed(cmd.Context(), db); err != nil {
			return fmt.Errorf("seed tags: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	workers, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	sender := services.LogSender
	if len(cfg.KafkaBrokers) > 0 {
		producer := utils.NewKafkaProducer(utils.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer producer.Close()
		sender = services.KafkaSender(producer)
	}
	relayer := services.NewOutboxRelayer(db, sender, cfg.OutboxBatchSize, cfg.OutboxMaxRetry,
		time.Duration(cfg.OutboxIntervalSeconds)*time.Second)
	reconciler := services.NewSupportReconciler(db, svc.Supports, cfg.ReconcileBatchSize,
		time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute)

	done := make(chan struct{}, 2)
	go func() { relayer.Run(workers); done <- struct{}{} }()
	go func() { reconciler.Run(workers); done <- struct{}{} }()

	srv := utils.NewServer(":"+cfg.AppPort, routes.SetupRouter(svc))
	srv.OnShutdown(func(context.Context) {
		cancelWorkers()
		<-done
		<-done
	})

	utils.Logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db", cfg.DBDriver))
	return srv.ListenAndServe(ctx)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
