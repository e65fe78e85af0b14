package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attendance.service/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttendanceReportRepository persists classified events into the attendance
// report table. The (staff_no, tr_datetime, clock_event) triple is the dedup
// key; re-running a window is safe because duplicate candidates are skipped.
type AttendanceReportRepository struct {
	DB *sql.DB
}

// NewAttendanceReportRepository create new instance
func NewAttendanceReportRepository(db *sql.DB) *AttendanceReportRepository {
	return &AttendanceReportRepository{DB: db}
}

// InsertClassified writes one classified event unless it already exists.
func (r *AttendanceReportRepository) InsertClassified(ctx context.Context, ev model.ClassifiedEvent) (bool, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.staff_id", ev.StaffID))

	var count int
	dupQuery := `SELECT COUNT(*) FROM attendance_report
                  WHERE staff_no = $1 AND tr_datetime = $2 AND clock_event = $3`
	if err := r.DB.QueryRowContext(ctx, dupQuery, ev.StaffID, ev.Timestamp, ev.Event).Scan(&count); err != nil {
		return false, fmt.Errorf("checking duplicate for %s: %w", ev.StaffID, err)
	}
	if count > 0 {
		return false, nil
	}

	insertQuery := `INSERT INTO attendance_report
              (staff_no, name, department, position, tr_datetime, tr_date,
               transaction_kind, tr_controller, unit_no, clock_event, inserted_date, processed)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)`

	trDate := time.Date(ev.Timestamp.Year(), ev.Timestamp.Month(), ev.Timestamp.Day(), 0, 0, 0, 0, ev.Timestamp.Location())
	_, err := r.DB.ExecContext(ctx, insertQuery,
		ev.StaffID, ev.Name, ev.Department, ev.Position, ev.Timestamp, trDate,
		ev.TransactionKind, ev.ControllerID, ev.UnitNo, ev.Event, time.Now())
	if err != nil {
		return false, fmt.Errorf("inserting classified event for %s: %w", ev.StaffID, err)
	}

	return true, nil
}

// ListUnforwarded returns Clock In / Clock Out rows the legacy clocking
// system has not received yet.
func (r *AttendanceReportRepository) ListUnforwarded(ctx context.Context, limit int) ([]model.ClassifiedEvent, error) {
	query := `SELECT staff_no, name, department, position, tr_datetime,
                     tr_controller, unit_no, transaction_kind, clock_event
                FROM attendance_report
               WHERE processed = FALSE AND clock_event IN ($1, $2)
            ORDER BY staff_no, tr_datetime
               LIMIT $3`

	rows, err := r.DB.QueryContext(ctx, query, model.ClockEventIn, model.ClockEventOut, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unforwarded events: %w", err)
	}
	defer rows.Close()

	var events []model.ClassifiedEvent
	for rows.Next() {
		var ev model.ClassifiedEvent
		if err := rows.Scan(&ev.StaffID, &ev.Name, &ev.Department, &ev.Position,
			&ev.Timestamp, &ev.ControllerID, &ev.UnitNo, &ev.TransactionKind, &ev.Event); err != nil {
			return nil, fmt.Errorf("scanning unforwarded event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkForwarded flips the processed flag after a successful legacy insert.
func (r *AttendanceReportRepository) MarkForwarded(ctx context.Context, staffID string, ts time.Time) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.staff_id", staffID))

	query := `UPDATE attendance_report SET processed = TRUE
               WHERE staff_no = $1 AND tr_datetime = $2`
	_, err := r.DB.ExecContext(ctx, query, staffID, ts)
	return err
}
