package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"attendance.service/internal/core/model"
	"github.com/rs/zerolog/log"
)

// outOfRangeEarlyDeparture is the severe-early-departure cutoff for clock-outs.
// An actual clock-out more than this far before the scheduled one is flagged
// Out of Range instead of plain Early.
const outOfRangeEarlyDeparture = 120 * time.Minute

// AggregateOptions parameterizes one aggregation pass. Everything the
// aggregator needs arrives here; nothing is read from ambient state.
type AggregateOptions struct {
	Mode       model.ClassificationMode
	Tolerances Tolerances
	Override   *model.TimeOverride
	// Roster, when non-empty, makes the aggregator emit an all-Missing
	// record for every scheduled staff member without a single punch on a
	// day of the window, instead of silently dropping them.
	Roster      []model.StaffMember
	WindowStart time.Time
	WindowEnd   time.Time
}

// SkippedGroup records one staff/day group that failed to process. The rest
// of the batch is unaffected.
type SkippedGroup struct {
	StaffID string
	Date    time.Time
	Err     error
}

// Aggregator folds a window of raw transactions into one attendance record
// per staff member and day.
type Aggregator struct {
	resolver   *ScheduleResolver
	classifier *EventClassifier
}

// NewAggregator creates an aggregator over the given resolver.
func NewAggregator(resolver *ScheduleResolver) *Aggregator {
	return &Aggregator{
		resolver:   resolver,
		classifier: NewEventClassifier(resolver),
	}
}

// Aggregate groups transactions by (staff, date), classifies each group per
// the selected mode, and derives actual clock instants and punch statuses.
// Groups that fail are returned as skipped, never aborting the batch.
func (a *Aggregator) Aggregate(ctx context.Context, txs []model.RawTransaction, opts AggregateOptions) ([]model.DailyAttendanceRecord, []SkippedGroup) {
	opts.Tolerances = opts.Tolerances.withDefaults()

	groups := make(map[model.DayKey][]model.RawTransaction)
	for _, tx := range txs {
		key := model.NewDayKey(tx.StaffID, tx.Timestamp)
		groups[key] = append(groups[key], tx)
	}

	keys := make([]model.DayKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StaffID != keys[j].StaffID {
			return keys[i].StaffID < keys[j].StaffID
		}
		return keys[i].Date(time.UTC).Before(keys[j].Date(time.UTC))
	})

	var records []model.DailyAttendanceRecord
	var skipped []SkippedGroup
	for _, key := range keys {
		group := groups[key]
		record, err := a.buildRecord(ctx, key, group, opts)
		if err != nil {
			date := key.Date(group[0].Timestamp.Location())
			log.Ctx(ctx).Warn().Err(err).
				Str("staff_id", key.StaffID).
				Time("date", date).
				Msg("Skipping staff/day group")
			skipped = append(skipped, SkippedGroup{StaffID: key.StaffID, Date: date, Err: err})
			continue
		}
		records = append(records, record)
	}

	records = append(records, a.missingRecords(ctx, groups, opts)...)
	return records, skipped
}

// buildRecord derives the attendance record for one staff/day group.
func (a *Aggregator) buildRecord(ctx context.Context, key model.DayKey, group []model.RawTransaction, opts AggregateOptions) (model.DailyAttendanceRecord, error) {
	date := key.Date(group[0].Timestamp.Location())
	record := model.DailyAttendanceRecord{
		StaffID:        key.StaffID,
		Name:           group[0].Name,
		Department:     group[0].Department,
		Position:       group[0].Position,
		Date:           date,
		ScheduleType:   model.ScheduleUnknown,
		ClockInStatus:  model.StatusMissing,
		ClockOutStatus: model.StatusMissing,
		Valid:          true,
	}

	var events []model.ClassifiedEvent
	if opts.Mode == model.ModeFILO {
		events = ApplyFILO(group)
	} else {
		for _, tx := range group {
			ev, err := a.classifier.Classify(ctx, tx, opts.Tolerances.EventSeconds, opts.Override)
			if err != nil {
				return model.DailyAttendanceRecord{}, fmt.Errorf("classifying scan at %s: %w", tx.Timestamp, err)
			}
			events = append(events, ev)
		}
	}
	record.Events = events

	for _, ev := range events {
		switch ev.Event {
		case model.ClockEventIn:
			if record.ActualClockIn == nil || ev.Timestamp.Before(*record.ActualClockIn) {
				ts := ev.Timestamp
				record.ActualClockIn = &ts
				record.ClockInController = ev.ControllerID
			}
		case model.ClockEventOut:
			if record.ActualClockOut == nil || ev.Timestamp.After(*record.ActualClockOut) {
				ts := ev.Timestamp
				record.ActualClockOut = &ts
				record.ClockOutController = ev.ControllerID
			}
		}
	}

	window, err := a.resolver.Resolve(ctx, key.StaffID, date, opts.Override)
	switch {
	case errors.Is(err, model.ErrNoShiftData):
		// Statuses stay Missing; the scans are still persisted as No Shift Data.
	case err != nil:
		return model.DailyAttendanceRecord{}, err
	default:
		in, out := window.In, window.Out
		record.ScheduledClockIn = &in
		record.ScheduledClockOut = &out
		record.ScheduleType = window.ScheduleType()
		if record.ActualClockIn != nil {
			record.ClockInStatus = clockInStatus(*record.ActualClockIn, in, opts.Tolerances.StatusMinutes)
		}
		if record.ActualClockOut != nil {
			record.ClockOutStatus = clockOutStatus(*record.ActualClockOut, out, opts.Tolerances.StatusMinutes)
		}
	}

	a.validate(&record)
	return record, nil
}

// validate computes the worked duration and flags implausible records.
func (a *Aggregator) validate(record *model.DailyAttendanceRecord) {
	if record.ActualClockIn != nil && record.ActualClockOut != nil {
		record.WorkedHours = record.ActualClockOut.Sub(*record.ActualClockIn).Hours()
		if record.WorkedHours < 0 {
			record.Valid = false
			record.Issues = append(record.Issues, "clock-out precedes clock-in")
		} else if record.WorkedHours > 24 {
			record.Valid = false
			record.Issues = append(record.Issues, "working duration exceeds 24 hours")
		}
		return
	}

	if record.ActualClockIn == nil && record.ActualClockOut == nil {
		record.Valid = false
		record.Issues = append(record.Issues, "no clock-in or clock-out found")
		return
	}
	if record.ActualClockIn == nil {
		record.Issues = append(record.Issues, "missing clock-in")
	} else {
		record.Issues = append(record.Issues, "missing clock-out")
	}
}

// missingRecords emits all-Missing records for scheduled roster members with
// no punches on a window day, so absent staff show up instead of vanishing.
func (a *Aggregator) missingRecords(ctx context.Context, groups map[model.DayKey][]model.RawTransaction, opts AggregateOptions) []model.DailyAttendanceRecord {
	if len(opts.Roster) == 0 || opts.WindowStart.IsZero() || opts.WindowEnd.IsZero() {
		return nil
	}

	var records []model.DailyAttendanceRecord
	start := time.Date(opts.WindowStart.Year(), opts.WindowStart.Month(), opts.WindowStart.Day(), 0, 0, 0, 0, opts.WindowStart.Location())
	for _, member := range opts.Roster {
		for date := start; !date.After(opts.WindowEnd); date = date.AddDate(0, 0, 1) {
			if _, ok := groups[model.NewDayKey(member.StaffID, date)]; ok {
				continue
			}
			window, err := a.resolver.Resolve(ctx, member.StaffID, date, opts.Override)
			if err != nil {
				continue
			}
			in, out := window.In, window.Out
			records = append(records, model.DailyAttendanceRecord{
				StaffID:           member.StaffID,
				Name:              member.Name,
				Department:        member.Department,
				Position:          member.Position,
				Date:              date,
				ScheduledClockIn:  &in,
				ScheduledClockOut: &out,
				ScheduleType:      window.ScheduleType(),
				ClockInStatus:     model.StatusMissing,
				ClockOutStatus:    model.StatusMissing,
				Valid:             false,
				Issues:            []string{"no punches for scheduled staff"},
			})
		}
	}
	return records
}

// clockInStatus applies the report's literal hour/minute comparison: a punch
// in an earlier clock hour is Early regardless of how close it is, a punch in
// the scheduled hour is on time up to toleranceMinutes past the scheduled
// minute, and everything else is Late. The rule is kept as-is because the
// historical reports depend on it.
func clockInStatus(actual, scheduled time.Time, toleranceMinutes int) model.PunchStatus {
	switch {
	case actual.Hour() < scheduled.Hour():
		return model.StatusEarly
	case actual.Hour() == scheduled.Hour() && actual.Minute() <= scheduled.Minute()+toleranceMinutes:
		return model.StatusOnTime
	default:
		return model.StatusLate
	}
}

// clockOutStatus mirrors clockInStatus for departures, with one addition: a
// departure more than two hours before the scheduled clock-out is Out of
// Range rather than Early.
func clockOutStatus(actual, scheduled time.Time, toleranceMinutes int) model.PunchStatus {
	switch {
	case actual.Hour() > scheduled.Hour():
		return model.StatusLate
	case actual.Hour() == scheduled.Hour() && actual.Minute() >= scheduled.Minute()-toleranceMinutes:
		return model.StatusOnTime
	case scheduled.Sub(actual) > outOfRangeEarlyDeparture:
		return model.StatusOutOfRange
	default:
		return model.StatusEarly
	}
}
