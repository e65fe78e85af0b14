// Entry point for the run summary notifier.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attendance.service/internal/config"
	"attendance.service/internal/worker"
	"attendance.service/internal/worker/notify"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup("attendance-notify-worker", cfg.IsLocalDev)

	shutdownTracer, err := telemetry.InitTracer("attendance-notify-worker", cfg.OTLPEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	sesClient := ses.NewFromConfig(awsCfg)

	mailer := notify.NewSESMailer(sesClient, cfg.NotifySender)
	processor := notify.NewProcessor(mailer, cfg.NotifyRecipient)

	ctx, cancel := context.WithCancel(context.Background())
	app := worker.NewWorker(sqsClient, cfg.NotifySQSQueueURL, processor)

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
