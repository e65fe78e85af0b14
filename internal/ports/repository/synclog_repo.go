package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"attendance.service/internal/core/model"
)

// SyncRunLogRepository writes one audit row per sync run and reads history
// back for operators re-checking past windows.
type SyncRunLogRepository struct {
	DB *sql.DB
}

// NewSyncRunLogRepository create new instance
func NewSyncRunLogRepository(db *sql.DB) *SyncRunLogRepository {
	return &SyncRunLogRepository{DB: db}
}

// Insert records the result of one run.
func (r *SyncRunLogRepository) Insert(ctx context.Context, result model.SyncRunResult) error {
	query := `INSERT INTO sync_run_log
              (sync_id, window_start, window_end, status, mode, dry_run,
               total_retrieved, processed, valid, invalid, skipped,
               inserted, duplicates, insert_failures,
               executed_at, execution_ms, created_by, error_message, warning_message)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	var errMsg, warnMsg sql.NullString
	if len(result.Errors) > 0 {
		errMsg = sql.NullString{String: strings.Join(result.Errors, "; "), Valid: true}
	}
	if len(result.Warnings) > 0 {
		warnMsg = sql.NullString{String: strings.Join(result.Warnings, "; "), Valid: true}
	}

	_, err := r.DB.ExecContext(ctx, query,
		result.SyncID, result.WindowStart, result.WindowEnd, result.Status, result.Mode, result.DryRun,
		result.TotalRetrieved, result.Processed, result.Valid, result.Invalid, result.Skipped,
		result.Inserted, result.Duplicates, result.InsertFailures,
		result.ExecutedAt, result.ExecutionMs, result.CreatedBy, errMsg, warnMsg)
	if err != nil {
		return fmt.Errorf("inserting sync run log %s: %w", result.SyncID, err)
	}
	return nil
}

// History returns past runs, newest first.
func (r *SyncRunLogRepository) History(ctx context.Context, filter SyncLogFilter) ([]model.SyncRunResult, error) {
	var conditions []string
	var args []any

	if filter.Start != nil {
		args = append(args, *filter.Start)
		conditions = append(conditions, fmt.Sprintf("executed_at >= $%d", len(args)))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		conditions = append(conditions, fmt.Sprintf("executed_at <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT sync_id, window_start, window_end, status, mode, dry_run,
                     total_retrieved, processed, valid, invalid, skipped,
                     inserted, duplicates, insert_failures,
                     executed_at, execution_ms, created_by,
                     COALESCE(error_message, ''), COALESCE(warning_message, '')
                FROM sync_run_log
                %s
            ORDER BY executed_at DESC
               LIMIT $%d`, whereClause, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync run log: %w", err)
	}
	defer rows.Close()

	var results []model.SyncRunResult
	for rows.Next() {
		var res model.SyncRunResult
		var errMsg, warnMsg string
		if err := rows.Scan(&res.SyncID, &res.WindowStart, &res.WindowEnd, &res.Status, &res.Mode, &res.DryRun,
			&res.TotalRetrieved, &res.Processed, &res.Valid, &res.Invalid, &res.Skipped,
			&res.Inserted, &res.Duplicates, &res.InsertFailures,
			&res.ExecutedAt, &res.ExecutionMs, &res.CreatedBy, &errMsg, &warnMsg); err != nil {
			return nil, fmt.Errorf("scanning sync run log: %w", err)
		}
		if errMsg != "" {
			res.Errors = strings.Split(errMsg, "; ")
		}
		if warnMsg != "" {
			res.Warnings = strings.Split(warnMsg, "; ")
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
