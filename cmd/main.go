package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"tumapply/internal/auth"
	"tumapply/internal/config"
	"tumapply/internal/handler"
	"tumapply/internal/logger"
	"tumapply/internal/notification"
	"tumapply/internal/repository"
	"tumapply/internal/service"
	"tumapply/internal/service/s3"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration, log *zap.Logger) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Warn("failed to connect to database",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(cfg *config.Config, log *zap.Logger) error {
	var (
		m   *migrate.Migrate
		err error
	)
	for i := 0; i < 5; i++ {
		m, err = migrate.New(cfg.Server.MigrationsPath, cfg.Database.MigrateURL())
		if err == nil {
			break
		}
		log.Warn("failed to create migrate instance", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(time.Second * 5)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn("found dirty database state, forcing version", zap.Uint("version", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) notification.Publisher {
	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 {
		log.Info("no kafka brokers configured, notifications are only logged")
		return notification.NewLogPublisher(log)
	}
	log.Info("publishing notifications to kafka",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return notification.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appConfig.Logger.Level); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, time.Second*5, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(appConfig, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatal("failed to load S3 config", zap.Error(err))
	}
	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatal("failed to create S3 client", zap.Error(err))
	}

	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatal("failed to load auth config", zap.Error(err))
	}
	conn, err := grpc.Dial(authConfig.AuthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("failed to connect to auth service", zap.Error(err))
	}
	defer conn.Close()
	verifier := auth.NewGRPCVerifier(conn)

	dispatcher := notification.NewDispatcher(newPublisher(appConfig, log), notification.Options{
		QueueSize:    appConfig.Notification.QueueSize,
		Workers:      appConfig.Notification.Workers,
		MaxRetries:   appConfig.Notification.MaxRetries,
		RetryBackoff: appConfig.Notification.RetryBackoff,
	}, log)
	dispatcher.Start()

	store := repository.NewStore(db)
	documentStore := service.NewBlobDocumentStore(s3Client, store, appConfig.Upload.MaxFileSize, log)
	reconciler := service.NewDocumentReconciler(log)
	permissionService := service.NewPermissionService()

	applicationService := service.NewApplicationService(
		store, documentStore, reconciler, permissionService, dispatcher, appConfig.Upload.MaxConcurrent, log)
	profileService := service.NewProfileService(
		store, documentStore, reconciler, permissionService, appConfig.Upload.MaxConcurrent, log)
	documentService := service.NewDocumentService(store, documentStore, reconciler, permissionService, log)

	uploadLimits := handler.UploadLimits{
		MaxFileSize: appConfig.Upload.MaxFileSize,
		MaxFiles:    appConfig.Upload.MaxFiles,
	}
	router := handler.NewRouter(handler.Handlers{
		Applications: handler.NewApplicationHandler(applicationService, verifier, uploadLimits, log),
		Profiles:     handler.NewProfileHandler(profileService, verifier, uploadLimits, log),
		Documents:    handler.NewDocumentHandler(documentService, verifier, log),
	}, appConfig.Server.RequestTimeout)

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", appConfig.Server.GRPCPort))
		if err != nil {
			log.Fatal("failed to listen for gRPC", zap.Error(err))
		}
		log.Info("starting gRPC server", zap.String("port", appConfig.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("failed to serve gRPC", zap.Error(err))
		}
	}()

	go func() {
		log.Info("starting HTTP server", zap.String("port", appConfig.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down servers")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	grpcServer.GracefulStop()

	if err := dispatcher.Stop(ctx); err != nil {
		log.Error("notification dispatcher did not drain", zap.Error(err))
	}

	if err := db.Close(); err != nil {
		log.Error("error closing database connection", zap.Error(err))
	}

	log.Info("server exited properly")
}
