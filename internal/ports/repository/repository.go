package repository

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
)

// TransactionFilter bounds one retrieval from the access-control store.
// Filtering by transaction kind, controller allow-list and staff prefix
// happens here, at the retrieval boundary, never inside the core.
type TransactionFilter struct {
	Start       time.Time
	End         time.Time
	Controllers []string
	StaffPrefix string
}

// TransactionSource reads raw badge scans from the access-control database.
type TransactionSource interface {
	FetchWindow(ctx context.Context, filter TransactionFilter) ([]model.RawTransaction, error)
}

// ScheduleStore is the keyed lookup from staff to nominal shift times.
type ScheduleStore interface {
	// FindSchedule returns (nil, nil) when no entry exists for the staff member.
	FindSchedule(ctx context.Context, staffID string) (*model.ScheduleEntry, error)
	// ListScheduledStaff returns everyone with a usable schedule entry,
	// used to emit Missing records for staff with no punches in a window.
	ListScheduledStaff(ctx context.Context) ([]model.StaffMember, error)
}

// AttendanceRepository is the persistence sink for classified events.
type AttendanceRepository interface {
	// InsertClassified inserts one classified event unless a row with the
	// same (staffId, timestamp, clockEvent) already exists. The boolean
	// reports whether a row was actually written.
	InsertClassified(ctx context.Context, ev model.ClassifiedEvent) (bool, error)
	// ListUnforwarded returns Clock In / Clock Out rows not yet pushed to
	// the legacy clocking system.
	ListUnforwarded(ctx context.Context, limit int) ([]model.ClassifiedEvent, error)
	// MarkForwarded flips the processed flag once the legacy system has the row.
	MarkForwarded(ctx context.Context, staffID string, ts time.Time) error
}

// SyncLogFilter narrows audit-log reads.
type SyncLogFilter struct {
	Start  *time.Time
	End    *time.Time
	Status model.SyncStatus
	Limit  int
}

// SyncLogRepository records the outcome of every sync run.
type SyncLogRepository interface {
	Insert(ctx context.Context, result model.SyncRunResult) error
	History(ctx context.Context, filter SyncLogFilter) ([]model.SyncRunResult, error)
}
