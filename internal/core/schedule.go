package core

import (
	"context"
	"fmt"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
)

// ScheduleResolver turns a staff member's nominal shift times into concrete
// instants for one calendar date. A manual override, when supplied, replaces
// the stored schedule for the whole run.
type ScheduleResolver struct {
	store repository.ScheduleStore
}

// NewScheduleResolver creates a resolver over the given schedule store.
func NewScheduleResolver(store repository.ScheduleStore) *ScheduleResolver {
	return &ScheduleResolver{store: store}
}

// Resolve returns the expected clock-in/out instants for the date.
// It returns model.ErrNoShiftData when the staff member has no usable entry.
func (r *ScheduleResolver) Resolve(ctx context.Context, staffID string, date time.Time, override *model.TimeOverride) (model.ShiftWindow, error) {
	if override != nil {
		return normalizeWindow(override.TimeIn.On(date), override.TimeOut.On(date)), nil
	}

	entry, err := r.store.FindSchedule(ctx, staffID)
	if err != nil {
		return model.ShiftWindow{}, fmt.Errorf("resolving schedule for %s: %w", staffID, err)
	}
	if entry == nil || entry.TimeIn == nil || entry.TimeOut == nil {
		return model.ShiftWindow{}, model.ErrNoShiftData
	}

	return normalizeWindow(entry.TimeIn.On(date), entry.TimeOut.On(date)), nil
}

// normalizeWindow rolls the clock-out to the next calendar day when the
// nominal out time is not after the in time (overnight shift).
func normalizeWindow(in, out time.Time) model.ShiftWindow {
	if !out.After(in) {
		out = out.AddDate(0, 0, 1)
	}
	return model.ShiftWindow{In: in, Out: out}
}
