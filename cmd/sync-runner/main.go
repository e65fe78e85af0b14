// Entry point for the attendance sync runner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/database"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func main() {
	var (
		startFlag     = flag.String("start", "", "window start, 2006-01-02 or 2006-01-02T15:04:05 (default: start of yesterday)")
		endFlag       = flag.String("end", "", "window end, same formats (default: now)")
		modeFlag      = flag.String("mode", "", "classification mode: tolerance or filo (default: from config)")
		dryRun        = flag.Bool("dry-run", false, "classify and report without writing anything")
		includeAbsent = flag.Bool("include-absent", false, "emit all-missing records for scheduled staff without punches")
		overrideIn    = flag.String("override-in", "", "manual shift clock-in override, HH:MM")
		overrideOut   = flag.String("override-out", "", "manual shift clock-out override, HH:MM")
		interval      = flag.Duration("interval", 0, "re-run every interval, sliding the window forward; 0 runs once")
		redrive       = flag.Bool("redrive", false, "re-enqueue unforwarded clock events instead of running a sync")
		redriveLimit  = flag.Int("redrive-limit", 500, "max rows to re-enqueue with -redrive")
		history       = flag.Int("history", 0, "print the last N sync runs and exit")
		createdBy     = flag.String("created-by", "sync-runner", "who triggered this run, recorded in the audit log")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup("attendance-sync-runner", cfg.IsLocalDev)

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("attendance-sync-runner", cfg.OTLPEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// Access control source DB (read side)
	sourceDB, err := database.NewInstrumentedConnection(database.ConnectionParams{
		Host:     cfg.SourceDBHost,
		Port:     cfg.SourceDBPort,
		User:     cfg.SourceDBUser,
		Password: cfg.SourceDBPassword,
		Name:     cfg.SourceDBName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening access control database")
	}
	defer sourceDB.Close()

	// Attendance DB (write side)
	attendanceDB, err := database.NewInstrumentedConnection(database.ConnectionParams{
		Host:     cfg.AttendanceDBHost,
		Port:     cfg.AttendanceDBPort,
		User:     cfg.AttendanceDBUser,
		Password: cfg.AttendanceDBPassword,
		Name:     cfg.AttendanceDBName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening attendance database")
	}
	defer attendanceDB.Close()
	log.Info().Msg("Successfully connected to both databases.")

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	source := repository.NewAccessControlSource(sourceDB, cfg.TransactionKind)
	schedules := repository.NewTimeScheduleStore(sourceDB)
	attendance := repository.NewAttendanceReportRepository(attendanceDB)
	syncLog := repository.NewSyncRunLogRepository(attendanceDB)
	producer := messaging.NewSQSProducer(sqsClient, cfg.ForwardSQSQueueURL, cfg.NotifySQSQueueURL)

	service := core.NewSyncService(source, schedules, attendance, syncLog, producer)

	if *history > 0 {
		printHistory(syncLog, *history)
		return
	}

	if *redrive {
		runRedrive(service, *redriveLimit)
		return
	}

	override, err := parseOverride(*overrideIn, *overrideOut)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid override flags")
	}

	window, err := resolveWindow(*startFlag, *endFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid window flags")
	}

	mode := model.ClassificationMode(cfg.ClassificationMode)
	if *modeFlag != "" {
		mode = model.ClassificationMode(*modeFlag)
	}
	if mode != model.ModeTolerance && mode != model.ModeFILO {
		log.Fatal().Str("mode", string(mode)).Msg("Unknown classification mode")
	}

	params := core.SyncParams{
		Start: window.start,
		End:   window.end,
		Mode:  mode,
		Tolerances: core.Tolerances{
			EventSeconds:  cfg.EventToleranceSeconds,
			StatusMinutes: cfg.StatusToleranceMinutes,
		},
		Controllers:   cfg.ControllerList(),
		StaffPrefix:   cfg.StaffPrefix,
		Override:      override,
		IncludeAbsent: *includeAbsent,
		DryRun:        *dryRun,
		CreatedBy:     *createdBy,
	}

	if *interval <= 0 {
		result := runOnce(service, params)
		if result.Status == model.SyncStatusFailed {
			os.Exit(1)
		}
		return
	}

	// Periodic mode: run immediately, then slide the window forward every
	// interval until interrupted.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	runOnce(service, params)
	for {
		select {
		case <-quit:
			log.Info().Msg("Shutting down sync runner...")
			return
		case <-ticker.C:
			params.Start = params.End
			params.End = time.Now()
			runOnce(service, params)
		}
	}
}

// runOnce executes one sync pass inside its own root span.
func runOnce(service *core.SyncService, params core.SyncParams) model.SyncRunResult {
	params.SyncID = uuid.New().String()

	tracer := otel.Tracer("sync-runner")
	ctx, span := tracer.Start(context.Background(), "attendance_sync")
	span.SetAttributes(attribute.String("app.sync_id", params.SyncID))
	defer span.End()

	ctx = logger.EnrichContextWithLogger(ctx)
	return service.Run(ctx, params)
}

// printHistory dumps the most recent audit log rows to stdout.
func printHistory(syncLog *repository.SyncRunLogRepository, limit int) {
	results, err := syncLog.History(context.Background(), repository.SyncLogFilter{Limit: limit})
	if err != nil {
		log.Fatal().Err(err).Msg("Reading sync history failed")
	}

	for _, r := range results {
		fmt.Printf("%s  %-7s  %s -> %s  retrieved=%d valid=%d invalid=%d inserted=%d dup=%d  %dms  %s\n",
			r.ExecutedAt.Format("2006-01-02 15:04:05"), r.Status,
			r.WindowStart.Format("01-02 15:04"), r.WindowEnd.Format("01-02 15:04"),
			r.TotalRetrieved, r.Valid, r.Invalid, r.Inserted, r.Duplicates,
			r.ExecutionMs, r.SyncID)
	}
}

// runRedrive re-enqueues rows the forwarder never confirmed.
func runRedrive(service *core.SyncService, limit int) {
	tracer := otel.Tracer("sync-runner")
	ctx, span := tracer.Start(context.Background(), "redrive_unforwarded")
	defer span.End()

	ctx = logger.EnrichContextWithLogger(ctx)
	queued, err := service.RequeueUnforwarded(ctx, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Redrive failed")
	}
	log.Info().Int("queued", queued).Msg("Redrive completed")
}

type window struct {
	start, end time.Time
}

// resolveWindow turns the start/end flags into a concrete window. With no
// flags the window covers yesterday 00:00 up to now.
func resolveWindow(startFlag, endFlag string) (window, error) {
	now := time.Now()

	end := now
	if endFlag != "" {
		var err error
		if end, err = parseFlexible(endFlag); err != nil {
			return window{}, fmt.Errorf("parsing -end: %w", err)
		}
	}

	var start time.Time
	if startFlag != "" {
		var err error
		if start, err = parseFlexible(startFlag); err != nil {
			return window{}, fmt.Errorf("parsing -start: %w", err)
		}
	} else {
		yesterday := now.AddDate(0, 0, -1)
		start = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, now.Location())
	}

	if !start.Before(end) {
		return window{}, fmt.Errorf("window start %s is not before end %s", start, end)
	}
	return window{start: start, end: end}, nil
}

// parseFlexible accepts a bare date or a date with time.
func parseFlexible(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// parseOverride builds a manual shift override from the HH:MM flag pair.
// Both ends must be given together.
func parseOverride(in, out string) (*model.TimeOverride, error) {
	if in == "" && out == "" {
		return nil, nil
	}
	if in == "" || out == "" {
		return nil, fmt.Errorf("override requires both -override-in and -override-out")
	}

	clockIn, err := model.ParseTimeOfDay(in)
	if err != nil {
		return nil, fmt.Errorf("parsing -override-in: %w", err)
	}
	clockOut, err := model.ParseTimeOfDay(out)
	if err != nil {
		return nil, fmt.Errorf("parsing -override-out: %w", err)
	}
	return &model.TimeOverride{TimeIn: clockIn, TimeOut: clockOut}, nil
}
