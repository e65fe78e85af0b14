// Entry point for the legacy clocking forwarder.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attendance.service/internal/config"
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/worker"
	"attendance.service/internal/worker/forward"
	"attendance.service/internal/worker/legacyclocking"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/database"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup("attendance-forward-worker", cfg.IsLocalDev)

	shutdownTracer, err := telemetry.InitTracer("attendance-forward-worker", cfg.OTLPEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// Attendance DB holds the rows being forwarded.
	db, err := database.NewInstrumentedConnection(database.ConnectionParams{
		Host:     cfg.AttendanceDBHost,
		Port:     cfg.AttendanceDBPort,
		User:     cfg.AttendanceDBUser,
		Password: cfg.AttendanceDBPassword,
		Name:     cfg.AttendanceDBName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening attendance database")
	}
	defer db.Close()
	log.Info().Msg("Successfully connected to the database.")

	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	repo := repository.NewAttendanceReportRepository(db)
	legacyClient := legacyclocking.NewHTTPClient(cfg.LegacyClockingURL)
	processor := forward.NewProcessor(repo, legacyClient)

	ctx, cancel := context.WithCancel(context.Background())
	app := worker.NewWorker(sqsClient, cfg.ForwardSQSQueueURL, processor)

	go func() {
		app.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down worker...")

	// Cancel the context to signal the worker to stop polling.
	cancel()

	log.Info().Msg("Worker exited gracefully")
}
