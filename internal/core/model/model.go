package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoShiftData is returned when a staff member has no usable schedule entry.
// It is never fatal: the caller records the transaction as No Shift Data.
var ErrNoShiftData = errors.New("no shift data for staff")

// ClockEvent is the label assigned to a single badge scan.
type ClockEvent string

const (
	ClockEventIn           ClockEvent = "Clock In"
	ClockEventOut          ClockEvent = "Clock Out"
	ClockEventMidScan      ClockEvent = "Mid Scans"
	ClockEventOutsideRange ClockEvent = "Outside Range"
	ClockEventNoShiftData  ClockEvent = "No Shift Data"
)

// PunchStatus classifies an actual clock-in/out against the schedule.
type PunchStatus string

const (
	StatusMissing    PunchStatus = "Missing"
	StatusEarly      PunchStatus = "Early"
	StatusOnTime     PunchStatus = "OnTime"
	StatusLate       PunchStatus = "Late"
	StatusOutOfRange PunchStatus = "Out of Range"
)

// ScheduleType is a reporting label derived from the scheduled time pair.
// It never influences how punches are classified.
type ScheduleType string

const (
	ScheduleFixed               ScheduleType = "Fixed"
	ScheduleTwoShiftDay         ScheduleType = "TwoShift_Day"
	ScheduleTwoShiftNight       ScheduleType = "TwoShift_Night"
	ScheduleThreeShiftMorning   ScheduleType = "ThreeShift_Morning"
	ScheduleThreeShiftAfternoon ScheduleType = "ThreeShift_Afternoon"
	ScheduleThreeShiftNight     ScheduleType = "ThreeShift_Night"
	ScheduleUnknown             ScheduleType = "Unknown"
)

// ClassificationMode selects how raw transactions are labeled for a run.
type ClassificationMode string

const (
	// ModeTolerance matches each scan against the schedule within a tolerance window.
	ModeTolerance ClassificationMode = "tolerance"
	// ModeFILO assigns first scan = Clock In, last = Clock Out, ignoring the schedule.
	ModeFILO ClassificationMode = "filo"
)

// SyncStatus is the terminal status of one sync run.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "error"
)

// SyncState tracks where a run is in its lifecycle. Failed is reachable
// from any state on infrastructure error.
type SyncState string

const (
	SyncStateIdle          SyncState = "idle"
	SyncStateRetrieving    SyncState = "retrieving"
	SyncStateProcessing    SyncState = "processing"
	SyncStateInserting     SyncState = "inserting"
	SyncStateDryRunSkipped SyncState = "dry_run_skipped"
	SyncStateCompleted     SyncState = "completed"
	SyncStateFailed        SyncState = "failed"
)

// TimeOfDay is a wall-clock time without a date, as stored in the schedule table.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS". The schedule table stores
// values like "07:00:00.0000000"; anything after a dot is ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	var tod TimeOfDay
	var err error
	if tod.Hour, err = strconv.Atoi(parts[0]); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	if tod.Minute, err = strconv.Atoi(parts[1]); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	if len(parts) == 3 {
		if tod.Second, err = strconv.Atoi(parts[2]); err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 || tod.Second < 0 || tod.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return tod, nil
}

// On combines the time of day with the calendar date of d.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, t.Second, 0, d.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// TimeOverride is an operator-supplied schedule replacement for one run.
type TimeOverride struct {
	TimeIn  TimeOfDay
	TimeOut TimeOfDay
}

// ScheduleEntry is one staff member's nominal shift as read from the
// schedule store. Nil times mean the entry is unusable.
type ScheduleEntry struct {
	StaffID string
	TimeIn  *TimeOfDay
	TimeOut *TimeOfDay
	DayType string
}

// ShiftWindow is a schedule resolved onto a concrete date. When the nominal
// clock-out precedes the clock-in, the Out instant falls on the next day.
type ShiftWindow struct {
	In  time.Time
	Out time.Time
}

// ScheduleType maps the shift window onto the site's known shift patterns.
// Unrecognized pairs are Unknown; this is a grouping label only.
func (w ShiftWindow) ScheduleType() ScheduleType {
	in := TimeOfDay{Hour: w.In.Hour(), Minute: w.In.Minute()}
	out := TimeOfDay{Hour: w.Out.Hour(), Minute: w.Out.Minute()}
	switch {
	case in == (TimeOfDay{Hour: 7}) && out == (TimeOfDay{Hour: 17}):
		return ScheduleFixed
	case in == (TimeOfDay{Hour: 7}) && out == (TimeOfDay{Hour: 19}):
		return ScheduleTwoShiftDay
	case in == (TimeOfDay{Hour: 19}) && out == (TimeOfDay{Hour: 7}):
		return ScheduleTwoShiftNight
	case in == (TimeOfDay{Hour: 6}) && out == (TimeOfDay{Hour: 14}):
		return ScheduleThreeShiftMorning
	case in == (TimeOfDay{Hour: 14}) && out == (TimeOfDay{Hour: 22}):
		return ScheduleThreeShiftAfternoon
	case in == (TimeOfDay{Hour: 22}) && out == (TimeOfDay{Hour: 6}):
		return ScheduleThreeShiftNight
	default:
		return ScheduleUnknown
	}
}

// RawTransaction is one badge scan as retrieved from the access-control
// store, already joined with the card holder's identity fields.
type RawTransaction struct {
	StaffID         string    `json:"staffId"`
	Name            string    `json:"name"`
	Department      string    `json:"department"`
	Position        string    `json:"position"`
	Timestamp       time.Time `json:"timestamp"`
	ControllerID    string    `json:"controllerId"`
	UnitNo          string    `json:"unitNo"`
	TransactionKind string    `json:"transactionKind"`
}

// ClassifiedEvent is a raw transaction annotated with its clock event label.
type ClassifiedEvent struct {
	RawTransaction
	Event ClockEvent `json:"clockEvent"`
}

// DayKey groups transactions by staff member and calendar day. The day is
// held as plain year/month/day fields rather than a time.Time so that keys
// built from timestamps in different locations compare equal for the same
// wall-clock date.
type DayKey struct {
	StaffID string
	Year    int
	Month   time.Month
	Day     int
}

// NewDayKey takes the calendar date of ts as read in its own location.
func NewDayKey(staffID string, ts time.Time) DayKey {
	return DayKey{
		StaffID: staffID,
		Year:    ts.Year(),
		Month:   ts.Month(),
		Day:     ts.Day(),
	}
}

// Date materializes the key's day at midnight in loc.
func (k DayKey) Date(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// StaffMember identifies one scheduled person. The aggregator uses the
// roster to emit Missing records for staff with no punches at all.
type StaffMember struct {
	StaffID    string
	Name       string
	Department string
	Position   string
}

// DailyAttendanceRecord is the aggregate unit of truth per staff member and day.
type DailyAttendanceRecord struct {
	StaffID            string
	Name               string
	Department         string
	Position           string
	Date               time.Time
	ScheduledClockIn   *time.Time
	ScheduledClockOut  *time.Time
	ScheduleType       ScheduleType
	ActualClockIn      *time.Time
	ActualClockOut     *time.Time
	ClockInController  string
	ClockOutController string
	ClockInStatus      PunchStatus
	ClockOutStatus     PunchStatus
	WorkedHours        float64
	Valid              bool
	Issues             []string
	Events             []ClassifiedEvent
}

// SyncRunResult summarizes one orchestration pass, persisted to the audit log.
type SyncRunResult struct {
	SyncID         string             `json:"syncId"`
	WindowStart    time.Time          `json:"windowStart"`
	WindowEnd      time.Time          `json:"windowEnd"`
	Status         SyncStatus         `json:"status"`
	Mode           ClassificationMode `json:"mode"`
	DryRun         bool               `json:"dryRun"`
	TotalRetrieved int                `json:"totalRetrieved"`
	Processed      int                `json:"processed"`
	Valid          int                `json:"valid"`
	Invalid        int                `json:"invalid"`
	Skipped        int                `json:"skipped"`
	Inserted       int                `json:"inserted"`
	Duplicates     int                `json:"duplicates"`
	InsertFailures int                `json:"insertFailures"`
	ExecutedAt     time.Time          `json:"executedAt"`
	ExecutionMs    int64              `json:"executionMs"`
	CreatedBy      string             `json:"createdBy"`
	Errors         []string           `json:"errors,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
}
