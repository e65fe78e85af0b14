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

func dayShiftAggregator(staffID string) *Aggregator {
	return NewAggregator(NewScheduleResolver(scheduleFor(staffID, tod(7, 0), tod(17, 0))))
}

func aggOpts() AggregateOptions {
	return AggregateOptions{
		Mode:       model.ModeTolerance,
		Tolerances: Tolerances{EventSeconds: 3600, StatusMinutes: 15},
	}
}

func TestAggregator_Aggregate_FullDay(t *testing.T) {
	t.Parallel()

	agg := dayShiftAggregator("MTI0001")
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	txs := []model.RawTransaction{
		{StaffID: "MTI0001", Name: "A Staff", Department: "Production", Timestamp: at(7, 10)},
		{StaffID: "MTI0001", Name: "A Staff", Department: "Production", Timestamp: at(17, 5)},
	}

	records, skipped := agg.Aggregate(context.Background(), txs, aggOpts())
	require.Empty(t, skipped)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "MTI0001", record.StaffID)
	assert.Equal(t, "A Staff", record.Name)
	assert.Equal(t, model.ScheduleFixed, record.ScheduleType)

	require.NotNil(t, record.ActualClockIn)
	require.NotNil(t, record.ActualClockOut)
	assert.Equal(t, at(7, 10), *record.ActualClockIn)
	assert.Equal(t, at(17, 5), *record.ActualClockOut)

	// 07:10 is within the 15 minute on-time window; 17:05 shares the
	// scheduled hour so it also counts as on time.
	assert.Equal(t, model.StatusOnTime, record.ClockInStatus)
	assert.Equal(t, model.StatusOnTime, record.ClockOutStatus)

	assert.True(t, record.Valid)
	assert.Empty(t, record.Issues)
	assert.InDelta(t, 9.92, record.WorkedHours, 0.01)
}

func TestAggregator_Aggregate_PunchStatuses(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	t.Run("arrival in earlier hour is early even one minute before", func(t *testing.T) {
		// The status rule compares hour then minute, so 06:59 against a
		// 07:00 schedule is Early, not on time. Reports depend on this.
		agg := dayShiftAggregator("MTI0001")
		records, _ := agg.Aggregate(context.Background(), []model.RawTransaction{
			{StaffID: "MTI0001", Timestamp: at(6, 59)},
			{StaffID: "MTI0001", Timestamp: at(17, 0)},
		}, aggOpts())
		require.Len(t, records, 1)
		assert.Equal(t, model.StatusEarly, records[0].ClockInStatus)
	})

	t.Run("arrival past tolerance is late", func(t *testing.T) {
		agg := dayShiftAggregator("MTI0001")
		records, _ := agg.Aggregate(context.Background(), []model.RawTransaction{
			{StaffID: "MTI0001", Timestamp: at(7, 20)},
			{StaffID: "MTI0001", Timestamp: at(17, 0)},
		}, aggOpts())
		require.Len(t, records, 1)
		assert.Equal(t, model.StatusLate, records[0].ClockInStatus)
	})

	t.Run("departure in later hour is late", func(t *testing.T) {
		agg := dayShiftAggregator("MTI0001")
		records, _ := agg.Aggregate(context.Background(), []model.RawTransaction{
			{StaffID: "MTI0001", Timestamp: at(7, 0)},
			{StaffID: "MTI0001", Timestamp: at(18, 5)},
		}, aggOpts())
		require.Len(t, records, 1)
		assert.Equal(t, model.StatusLate, records[0].ClockOutStatus)
	})

	t.Run("moderately early departure is early", func(t *testing.T) {
		agg := dayShiftAggregator("MTI0001")
		records, _ := agg.Aggregate(context.Background(), []model.RawTransaction{
			{StaffID: "MTI0001", Timestamp: at(7, 0)},
			{StaffID: "MTI0001", Timestamp: at(16, 30)},
		}, aggOpts())
		require.Len(t, records, 1)
		assert.Equal(t, model.StatusEarly, records[0].ClockOutStatus)
	})

	t.Run("departure over two hours early is out of range", func(t *testing.T) {
		// 14:00 is within the event tolerance? No: 3 hours from 17:00,
		// so classify it Outside Range; force the clock-out with FILO.
		agg := dayShiftAggregator("MTI0001")
		opts := aggOpts()
		opts.Mode = model.ModeFILO
		records, _ := agg.Aggregate(context.Background(), []model.RawTransaction{
			{StaffID: "MTI0001", Timestamp: at(7, 0)},
			{StaffID: "MTI0001", Timestamp: at(14, 0)},
		}, opts)
		require.Len(t, records, 1)
		assert.Equal(t, model.StatusOutOfRange, records[0].ClockOutStatus)
	})
}

func TestAggregator_Aggregate_NoScheduleKeepsScansWithMissingStatuses(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(NewScheduleResolver(&fakeScheduleStore{entries: map[string]*model.ScheduleEntry{}}))
	day := time.Date(2024, 3, 15, 8, 0, 0, 0, time.Local)

	records, skipped := agg.Aggregate(context.Background(), []model.RawTransaction{
		{StaffID: "MTI9999", Timestamp: day},
	}, aggOpts())
	require.Empty(t, skipped)
	require.Len(t, records, 1)

	record := records[0]
	assert.Nil(t, record.ScheduledClockIn)
	assert.Equal(t, model.StatusMissing, record.ClockInStatus)
	assert.Equal(t, model.StatusMissing, record.ClockOutStatus)
	require.Len(t, record.Events, 1)
	assert.Equal(t, model.ClockEventNoShiftData, record.Events[0].Event)
	// No usable punches, so the record is invalid but the scan is kept.
	assert.False(t, record.Valid)
}

func TestAggregator_Aggregate_StoreFailureSkipsGroupOnly(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("store down")
	store := &fakeScheduleStore{
		entries: map[string]*model.ScheduleEntry{
			"MTI0001": {StaffID: "MTI0001", TimeIn: tod(7, 0), TimeOut: tod(17, 0)},
		},
	}
	agg := NewAggregator(NewScheduleResolver(&flakyStore{inner: store, failFor: "MTI0002", err: storeErr}))

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	records, skipped := agg.Aggregate(context.Background(), []model.RawTransaction{
		{StaffID: "MTI0001", Timestamp: day.Add(7 * time.Hour)},
		{StaffID: "MTI0001", Timestamp: day.Add(17 * time.Hour)},
		{StaffID: "MTI0002", Timestamp: day.Add(7 * time.Hour)},
	}, aggOpts())

	require.Len(t, records, 1)
	assert.Equal(t, "MTI0001", records[0].StaffID)
	require.Len(t, skipped, 1)
	assert.Equal(t, "MTI0002", skipped[0].StaffID)
	assert.ErrorIs(t, skipped[0].Err, storeErr)
}

func TestAggregator_Aggregate_RosterEmitsMissingRecords(t *testing.T) {
	t.Parallel()

	store := &fakeScheduleStore{
		entries: map[string]*model.ScheduleEntry{
			"MTI0001": {StaffID: "MTI0001", TimeIn: tod(7, 0), TimeOut: tod(17, 0)},
			"MTI0002": {StaffID: "MTI0002", TimeIn: tod(7, 0), TimeOut: tod(17, 0)},
		},
	}
	agg := NewAggregator(NewScheduleResolver(store))

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	opts := aggOpts()
	opts.Roster = []model.StaffMember{
		{StaffID: "MTI0001", Name: "Present"},
		{StaffID: "MTI0002", Name: "Absent"},
	}
	opts.WindowStart = day
	opts.WindowEnd = day.Add(20 * time.Hour)

	records, skipped := agg.Aggregate(context.Background(), []model.RawTransaction{
		{StaffID: "MTI0001", Name: "Present", Timestamp: day.Add(7 * time.Hour)},
		{StaffID: "MTI0001", Name: "Present", Timestamp: day.Add(17 * time.Hour)},
	}, opts)
	require.Empty(t, skipped)
	require.Len(t, records, 2)

	var absent *model.DailyAttendanceRecord
	for i := range records {
		if records[i].StaffID == "MTI0002" {
			absent = &records[i]
		}
	}
	require.NotNil(t, absent, "absent staff member should get a record")
	assert.Equal(t, model.StatusMissing, absent.ClockInStatus)
	assert.Equal(t, model.StatusMissing, absent.ClockOutStatus)
	assert.False(t, absent.Valid)
	assert.Nil(t, absent.ActualClockIn)
	assert.NotNil(t, absent.ScheduledClockIn)
}

func TestAggregator_Aggregate_RosterMatchesAcrossLocations(t *testing.T) {
	t.Parallel()

	// Transaction timestamps come back from the driver in UTC while the
	// window dates carry the runner's local zone. The day grouping must
	// match the roster probe regardless, or present staff would also get
	// a duplicate all-Missing record.
	wib := time.FixedZone("WIB", 7*3600)
	agg := dayShiftAggregator("MTI0001")

	opts := aggOpts()
	opts.Roster = []model.StaffMember{{StaffID: "MTI0001", Name: "Present"}}
	opts.WindowStart = time.Date(2024, 3, 15, 0, 0, 0, 0, wib)
	opts.WindowEnd = time.Date(2024, 3, 15, 20, 0, 0, 0, wib)

	records, skipped := agg.Aggregate(context.Background(), []model.RawTransaction{
		{StaffID: "MTI0001", Name: "Present", Timestamp: time.Date(2024, 3, 15, 7, 10, 0, 0, time.UTC)},
		{StaffID: "MTI0001", Name: "Present", Timestamp: time.Date(2024, 3, 15, 17, 5, 0, 0, time.UTC)},
	}, opts)
	require.Empty(t, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, model.StatusOnTime, records[0].ClockInStatus)
	assert.Equal(t, model.StatusOnTime, records[0].ClockOutStatus)
}

func TestAggregator_Aggregate_ScansSplitAtMidnight(t *testing.T) {
	t.Parallel()

	agg := dayShiftAggregator("MTI0001")
	opts := aggOpts()
	opts.Mode = model.ModeFILO

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	records, _ := agg.Aggregate(context.Background(), []model.RawTransaction{
		{StaffID: "MTI0001", Timestamp: day.Add(-10 * time.Hour)}, // 14:00 previous day
		{StaffID: "MTI0001", Timestamp: day.Add(20 * time.Hour)},
	}, opts)

	// The two scans land on different calendar days, producing two
	// single-punch groups rather than one 30 hour record.
	require.Len(t, records, 2)
	for _, record := range records {
		assert.True(t, record.Valid)
		assert.NotEmpty(t, record.Issues)
	}
}

// flakyStore fails schedule lookups for one staff member and delegates the rest.
type flakyStore struct {
	inner   *fakeScheduleStore
	failFor string
	err     error
}

func (f *flakyStore) FindSchedule(ctx context.Context, staffID string) (*model.ScheduleEntry, error) {
	if staffID == f.failFor {
		return nil, f.err
	}
	return f.inner.FindSchedule(ctx, staffID)
}

func (f *flakyStore) ListScheduledStaff(ctx context.Context) ([]model.StaffMember, error) {
	return f.inner.ListScheduledStaff(ctx)
}
