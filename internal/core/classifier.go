package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"attendance.service/internal/core/model"
)

// Default tolerance values. The event tolerance attributes a scan to a shift
// boundary; the status tolerance is the on-time window used when deriving
// punch statuses. The two are independent and configured separately.
const (
	DefaultEventToleranceSeconds  = 3600
	DefaultStatusToleranceMinutes = 30
)

// Tolerances carries both tolerance settings through every classifier and
// aggregator call. The core never reads tolerance values from anywhere else.
type Tolerances struct {
	EventSeconds  int
	StatusMinutes int
}

func (t Tolerances) withDefaults() Tolerances {
	if t.EventSeconds <= 0 {
		t.EventSeconds = DefaultEventToleranceSeconds
	}
	if t.StatusMinutes <= 0 {
		t.StatusMinutes = DefaultStatusToleranceMinutes
	}
	return t
}

// EventClassifier labels a single badge scan against the resolved schedule.
type EventClassifier struct {
	resolver *ScheduleResolver
}

// NewEventClassifier creates a classifier backed by the given resolver.
func NewEventClassifier(resolver *ScheduleResolver) *EventClassifier {
	return &EventClassifier{resolver: resolver}
}

// Classify assigns a clock event label in tolerance mode. A scan within
// toleranceSeconds of the scheduled clock-in is always a Clock In, even when
// it is equally close to the clock-out boundary. A scan within tolerance of
// the scheduled clock-out, or at/after it, is a Clock Out. Anything else is
// Outside Range, and staff without a schedule get No Shift Data.
func (c *EventClassifier) Classify(ctx context.Context, tx model.RawTransaction, toleranceSeconds int, override *model.TimeOverride) (model.ClassifiedEvent, error) {
	ev := model.ClassifiedEvent{RawTransaction: tx}

	window, err := c.resolver.Resolve(ctx, tx.StaffID, tx.Timestamp, override)
	if errors.Is(err, model.ErrNoShiftData) {
		ev.Event = model.ClockEventNoShiftData
		return ev, nil
	}
	if err != nil {
		return ev, err
	}

	tol := time.Duration(toleranceSeconds) * time.Second
	if absDuration(tx.Timestamp.Sub(window.In)) <= tol {
		ev.Event = model.ClockEventIn
		return ev, nil
	}
	if absDuration(tx.Timestamp.Sub(window.Out)) <= tol || !tx.Timestamp.Before(window.Out) {
		ev.Event = model.ClockEventOut
		return ev, nil
	}

	ev.Event = model.ClockEventOutsideRange
	return ev, nil
}

// ApplyFILO labels one day's scans ordinally: the earliest is the Clock In,
// the latest the Clock Out, everything between a mid scan. A single scan is
// always a Clock In. The schedule plays no part; this mode exists for
// controllers that only emit undifferentiated access events.
func ApplyFILO(group []model.RawTransaction) []model.ClassifiedEvent {
	sorted := make([]model.RawTransaction, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	events := make([]model.ClassifiedEvent, len(sorted))
	for i, tx := range sorted {
		ev := model.ClassifiedEvent{RawTransaction: tx, Event: model.ClockEventMidScan}
		switch {
		case i == 0:
			ev.Event = model.ClockEventIn
		case i == len(sorted)-1:
			ev.Event = model.ClockEventOut
		}
		events[i] = ev
	}
	return events
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
