package repository

import (
	"context"
	"database/sql"
	"fmt"

	"attendance.service/internal/core/model"
)

// TimeScheduleStore is the concrete schedule lookup over the HR time-schedule
// table. Times are stored as text (the upstream system writes values like
// "07:00:00.0000000"); parsing failures are treated as unusable entries.
type TimeScheduleStore struct {
	DB *sql.DB
}

// NewTimeScheduleStore create new instance
func NewTimeScheduleStore(db *sql.DB) *TimeScheduleStore {
	return &TimeScheduleStore{DB: db}
}

// FindSchedule returns the staff member's nominal shift, or (nil, nil) when
// no entry exists.
func (s *TimeScheduleStore) FindSchedule(ctx context.Context, staffID string) (*model.ScheduleEntry, error) {
	query := `SELECT time_in, time_out, COALESCE(day_type, '')
                FROM staff_time_schedules
               WHERE staff_no = $1
               LIMIT 1`

	var timeIn, timeOut sql.NullString
	entry := &model.ScheduleEntry{StaffID: staffID}

	err := s.DB.QueryRowContext(ctx, query, staffID).Scan(&timeIn, &timeOut, &entry.DayType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying schedule for %s: %w", staffID, err)
	}

	if timeIn.Valid {
		if tod, err := model.ParseTimeOfDay(timeIn.String); err == nil {
			entry.TimeIn = &tod
		}
	}
	if timeOut.Valid {
		if tod, err := model.ParseTimeOfDay(timeOut.String); err == nil {
			entry.TimeOut = &tod
		}
	}
	return entry, nil
}

// ListScheduledStaff returns everyone with both shift times present.
func (s *TimeScheduleStore) ListScheduledStaff(ctx context.Context) ([]model.StaffMember, error) {
	query := `SELECT s.staff_no, COALESCE(c.name, ''), COALESCE(c.department, ''), COALESCE(c.position, '')
                FROM staff_time_schedules s
           LEFT JOIN card_holders c ON c.staff_no = s.staff_no
               WHERE s.time_in IS NOT NULL AND s.time_out IS NOT NULL
            ORDER BY s.staff_no`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled staff: %w", err)
	}
	defer rows.Close()

	var staff []model.StaffMember
	for rows.Next() {
		var m model.StaffMember
		if err := rows.Scan(&m.StaffID, &m.Name, &m.Department, &m.Position); err != nil {
			return nil, fmt.Errorf("scanning scheduled staff: %w", err)
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}
