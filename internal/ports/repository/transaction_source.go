package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"attendance.service/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AccessControlSource reads badge scans from the access-control database.
// The scans are read-only to this service; rows are joined with the card
// holder table so the core never has to look identities up again.
type AccessControlSource struct {
	DB *sql.DB
	// TransactionKind filters scans at the retrieval boundary,
	// e.g. "Valid Entry Access".
	TransactionKind string
}

// NewAccessControlSource create new instance
func NewAccessControlSource(db *sql.DB, transactionKind string) *AccessControlSource {
	return &AccessControlSource{DB: db, TransactionKind: transactionKind}
}

// FetchWindow returns all matching scans with timestamp in [start, end] inclusive,
// ordered by staff and time.
func (s *AccessControlSource) FetchWindow(ctx context.Context, filter TransactionFilter) ([]model.RawTransaction, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.window_start", filter.Start.String()),
		attribute.String("app.window_end", filter.End.String()),
	)

	args := []any{filter.Start, filter.End, s.TransactionKind}
	var b strings.Builder
	b.WriteString(`SELECT c.staff_no, c.name, c.department, c.position,
              t.tr_datetime, t.tr_controller, t.unit_no, t.transaction_kind
         FROM card_holders c
         JOIN access_transactions t ON c.card_no = t.card_no
        WHERE t.tr_datetime BETWEEN $1 AND $2
          AND t.transaction_kind = $3`)

	if filter.StaffPrefix != "" {
		args = append(args, filter.StaffPrefix+"%")
		fmt.Fprintf(&b, " AND c.staff_no LIKE $%d", len(args))
	}
	if len(filter.Controllers) > 0 {
		placeholders := make([]string, 0, len(filter.Controllers))
		for _, controller := range filter.Controllers {
			args = append(args, controller)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		fmt.Fprintf(&b, " AND t.tr_controller IN (%s)", strings.Join(placeholders, ", "))
	}
	b.WriteString(" ORDER BY c.staff_no, t.tr_datetime")

	rows, err := s.DB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying access transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.RawTransaction
	for rows.Next() {
		var tx model.RawTransaction
		var name, department, position, unitNo sql.NullString
		if err := rows.Scan(&tx.StaffID, &name, &department, &position,
			&tx.Timestamp, &tx.ControllerID, &unitNo, &tx.TransactionKind); err != nil {
			return nil, fmt.Errorf("scanning access transaction: %w", err)
		}
		tx.Name = name.String
		tx.Department = department.String
		tx.Position = position.String
		tx.UnitNo = unitNo.String
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading access transactions: %w", err)
	}

	return txs, nil
}
