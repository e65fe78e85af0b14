package core

import (
	"context"
	"fmt"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"github.com/rs/zerolog/log"
)

// SyncParams carries everything one sync run needs. All tolerances, filters
// and flags arrive as parameters; the service holds no per-run state.
type SyncParams struct {
	SyncID      string
	Start       time.Time
	End         time.Time
	Mode        model.ClassificationMode
	Tolerances  Tolerances
	Controllers []string
	StaffPrefix string
	Override    *model.TimeOverride
	// IncludeAbsent emits all-Missing records for scheduled staff without
	// punches in the window.
	IncludeAbsent bool
	DryRun        bool
	CreatedBy     string
}

// SyncService orchestrates one reconciliation pass: retrieve, aggregate,
// dedup-insert, enqueue forwards, and log the outcome. Per-record failures
// are counted, never fatal; only infrastructure failures fail the run.
type SyncService struct {
	source     repository.TransactionSource
	schedules  repository.ScheduleStore
	attendance repository.AttendanceRepository
	syncLog    repository.SyncLogRepository
	producer   messaging.Producer
	aggregator *Aggregator
}

// NewSyncService wires the orchestrator. producer may be nil when no
// downstream forwarding or notification is configured.
func NewSyncService(
	source repository.TransactionSource,
	schedules repository.ScheduleStore,
	attendance repository.AttendanceRepository,
	syncLog repository.SyncLogRepository,
	producer messaging.Producer,
) *SyncService {
	return &SyncService{
		source:     source,
		schedules:  schedules,
		attendance: attendance,
		syncLog:    syncLog,
		producer:   producer,
		aggregator: NewAggregator(NewScheduleResolver(schedules)),
	}
}

// Run executes one sync pass over [Start, End]. Re-running the same window
// is safe: inserts are deduplicated on (staffId, timestamp, clockEvent).
func (s *SyncService) Run(ctx context.Context, p SyncParams) model.SyncRunResult {
	started := time.Now()
	state := model.SyncStateIdle
	result := model.SyncRunResult{
		SyncID:      p.SyncID,
		WindowStart: p.Start,
		WindowEnd:   p.End,
		Status:      model.SyncStatusSuccess,
		Mode:        p.Mode,
		DryRun:      p.DryRun,
		ExecutedAt:  started,
		CreatedBy:   p.CreatedBy,
	}

	log.Ctx(ctx).Info().
		Str("sync_id", p.SyncID).
		Time("window_start", p.Start).
		Time("window_end", p.End).
		Str("mode", string(p.Mode)).
		Bool("dry_run", p.DryRun).
		Msg("Starting attendance sync")

	state = model.SyncStateRetrieving
	txs, err := s.source.FetchWindow(ctx, repository.TransactionFilter{
		Start:       p.Start,
		End:         p.End,
		Controllers: p.Controllers,
		StaffPrefix: p.StaffPrefix,
	})
	if err != nil {
		return s.fail(ctx, result, state, started, fmt.Errorf("retrieving transactions: %w", err))
	}
	result.TotalRetrieved = len(txs)

	if len(txs) == 0 {
		result.Warnings = append(result.Warnings, "no transactions found in the specified date range")
		result.ExecutionMs = time.Since(started).Milliseconds()
		s.writeLog(ctx, p.DryRun, result)
		log.Ctx(ctx).Info().Str("sync_id", p.SyncID).Msg("No transactions in window")
		return result
	}

	state = model.SyncStateProcessing
	opts := AggregateOptions{
		Mode:        p.Mode,
		Tolerances:  p.Tolerances,
		Override:    p.Override,
		WindowStart: p.Start,
		WindowEnd:   p.End,
	}
	if p.IncludeAbsent {
		roster, err := s.schedules.ListScheduledStaff(ctx)
		if err != nil {
			return s.fail(ctx, result, state, started, fmt.Errorf("listing scheduled staff: %w", err))
		}
		opts.Roster = roster
	}

	records, skippedGroups := s.aggregator.Aggregate(ctx, txs, opts)
	result.Processed = len(records)
	result.Skipped = len(skippedGroups)
	for _, sk := range skippedGroups {
		result.Errors = append(result.Errors,
			fmt.Sprintf("skipped %s on %s: %v", sk.StaffID, sk.Date.Format("2006-01-02"), sk.Err))
	}

	var valid []model.DailyAttendanceRecord
	for _, record := range records {
		if record.Valid {
			valid = append(valid, record)
		}
	}
	result.Valid = len(valid)
	result.Invalid = len(records) - len(valid)

	if p.DryRun {
		state = model.SyncStateDryRunSkipped
		log.Ctx(ctx).Info().Str("sync_id", p.SyncID).Int("valid", result.Valid).Msg("Dry run, skipping inserts")
	} else {
		state = model.SyncStateInserting
		s.insertRecords(ctx, valid, &result)
	}

	state = model.SyncStateCompleted
	result.ExecutionMs = time.Since(started).Milliseconds()
	s.writeLog(ctx, p.DryRun, result)
	s.notify(ctx, result)

	log.Ctx(ctx).Info().
		Str("sync_id", p.SyncID).
		Str("state", string(state)).
		Int("retrieved", result.TotalRetrieved).
		Int("valid", result.Valid).
		Int("invalid", result.Invalid).
		Int("skipped", result.Skipped).
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Msg("Attendance sync completed")
	return result
}

// insertRecords persists the classified events of valid records and queues
// newly inserted Clock In / Clock Out events for the legacy forwarder.
// Failures are per-record: counted and carried in the result.
func (s *SyncService) insertRecords(ctx context.Context, valid []model.DailyAttendanceRecord, result *model.SyncRunResult) {
	for _, record := range valid {
		for _, ev := range record.Events {
			inserted, err := s.attendance.InsertClassified(ctx, ev)
			if err != nil {
				result.InsertFailures++
				result.Errors = append(result.Errors,
					fmt.Sprintf("insert failed for %s at %s: %v", ev.StaffID, ev.Timestamp, err))
				continue
			}
			if !inserted {
				result.Duplicates++
				continue
			}
			result.Inserted++

			if s.producer != nil && (ev.Event == model.ClockEventIn || ev.Event == model.ClockEventOut) {
				if err := s.producer.PublishForward(ctx, messaging.NewForwardEvent(ev)); err != nil {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("forward enqueue failed for %s at %s: %v", ev.StaffID, ev.Timestamp, err))
				}
			}
		}
	}
}

// RequeueUnforwarded re-enqueues Clock In / Clock Out rows whose processed
// flag is still false, e.g. after a forwarder outage. Returns how many
// events were queued.
func (s *SyncService) RequeueUnforwarded(ctx context.Context, limit int) (int, error) {
	if s.producer == nil {
		return 0, fmt.Errorf("no producer configured")
	}

	events, err := s.attendance.ListUnforwarded(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing unforwarded events: %w", err)
	}

	queued := 0
	for _, ev := range events {
		if err := s.producer.PublishForward(ctx, messaging.NewForwardEvent(ev)); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("staff_id", ev.StaffID).Msg("Failed to requeue event")
			continue
		}
		queued++
	}
	return queued, nil
}

// fail finalizes a run after an infrastructure error. The failed result is
// still logged before being returned; the caller decides whether to retry.
func (s *SyncService) fail(ctx context.Context, result model.SyncRunResult, state model.SyncState, started time.Time, err error) model.SyncRunResult {
	log.Ctx(ctx).Error().Err(err).
		Str("sync_id", result.SyncID).
		Str("state", string(state)).
		Msg("Attendance sync failed")

	result.Status = model.SyncStatusFailed
	result.Errors = append(result.Errors, err.Error())
	result.ExecutionMs = time.Since(started).Milliseconds()
	s.writeLog(ctx, result.DryRun, result)
	s.notify(ctx, result)
	return result
}

// writeLog records the run in the audit log. Audit failures are logged and
// swallowed so they never break the run itself.
func (s *SyncService) writeLog(ctx context.Context, dryRun bool, result model.SyncRunResult) {
	if dryRun || s.syncLog == nil {
		return
	}
	if err := s.syncLog.Insert(ctx, result); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("sync_id", result.SyncID).Msg("Failed to write sync run log")
	}
}

// notify queues the run summary for the notification worker.
func (s *SyncService) notify(ctx context.Context, result model.SyncRunResult) {
	if s.producer == nil || result.DryRun {
		return
	}
	if err := s.producer.PublishNotify(ctx, result); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("sync_id", result.SyncID).Msg("Failed to queue run notification")
	}
}
