package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendance.service/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduleStore serves schedule entries from a map, optionally failing
// every call.
type fakeScheduleStore struct {
	entries map[string]*model.ScheduleEntry
	staff   []model.StaffMember
	err     error
}

func (f *fakeScheduleStore) FindSchedule(_ context.Context, staffID string) (*model.ScheduleEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[staffID], nil
}

func (f *fakeScheduleStore) ListScheduledStaff(_ context.Context) ([]model.StaffMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.staff, nil
}

func tod(h, m int) *model.TimeOfDay {
	return &model.TimeOfDay{Hour: h, Minute: m}
}

func scheduleFor(staffID string, in, out *model.TimeOfDay) *fakeScheduleStore {
	return &fakeScheduleStore{entries: map[string]*model.ScheduleEntry{
		staffID: {StaffID: staffID, TimeIn: in, TimeOut: out},
	}}
}

func TestScheduleResolver_Resolve_DayShift(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(scheduleFor("MTI0001", tod(7, 0), tod(17, 0)))
	date := time.Date(2024, 3, 15, 9, 12, 0, 0, time.Local)

	window, err := resolver.Resolve(context.Background(), "MTI0001", date, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 7, 0, 0, 0, time.Local), window.In)
	assert.Equal(t, time.Date(2024, 3, 15, 17, 0, 0, 0, time.Local), window.Out)
}

func TestScheduleResolver_Resolve_OvernightShiftRollsOutForward(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(scheduleFor("MTI0002", tod(23, 0), tod(7, 0)))
	date := time.Date(2024, 3, 15, 23, 30, 0, 0, time.Local)

	window, err := resolver.Resolve(context.Background(), "MTI0002", date, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 23, 0, 0, 0, time.Local), window.In)
	assert.Equal(t, time.Date(2024, 3, 16, 7, 0, 0, 0, time.Local), window.Out)
	assert.True(t, window.Out.After(window.In))
}

func TestScheduleResolver_Resolve_EqualTimesTreatedAsOvernight(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(scheduleFor("MTI0003", tod(8, 0), tod(8, 0)))
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)

	window, err := resolver.Resolve(context.Background(), "MTI0003", date, nil)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, window.Out.Sub(window.In))
}

func TestScheduleResolver_Resolve_OverrideReplacesStoredSchedule(t *testing.T) {
	t.Parallel()

	// The store would fail if consulted; the override must short-circuit it.
	resolver := NewScheduleResolver(&fakeScheduleStore{err: errors.New("store down")})
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	override := &model.TimeOverride{
		TimeIn:  model.TimeOfDay{Hour: 9},
		TimeOut: model.TimeOfDay{Hour: 18},
	}

	window, err := resolver.Resolve(context.Background(), "MTI0001", date, override)
	require.NoError(t, err)
	assert.Equal(t, 9, window.In.Hour())
	assert.Equal(t, 18, window.Out.Hour())
}

func TestScheduleResolver_Resolve_MissingEntryIsNoShiftData(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(&fakeScheduleStore{entries: map[string]*model.ScheduleEntry{}})

	_, err := resolver.Resolve(context.Background(), "MTI9999", time.Now(), nil)
	assert.ErrorIs(t, err, model.ErrNoShiftData)
}

func TestScheduleResolver_Resolve_NullTimesAreNoShiftData(t *testing.T) {
	t.Parallel()

	resolver := NewScheduleResolver(scheduleFor("MTI0004", tod(7, 0), nil))

	_, err := resolver.Resolve(context.Background(), "MTI0004", time.Now(), nil)
	assert.ErrorIs(t, err, model.ErrNoShiftData)
}

func TestScheduleResolver_Resolve_StoreErrorIsWrapped(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection reset")
	resolver := NewScheduleResolver(&fakeScheduleStore{err: storeErr})

	_, err := resolver.Resolve(context.Background(), "MTI0001", time.Now(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, model.ErrNoShiftData)
}
