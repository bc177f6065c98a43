package repo

import (
	"context"
	"database/sql"

	"curbside/internal/domain"
)

// ListRecentDriverEvents returns the newest audit entries, optionally scoped
// to one run.
func (r Repo) ListRecentDriverEvents(ctx context.Context, runID *int64, limit int) ([]domain.DriverEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,route_run_id,driver_user_id,event_type,payload_json,created_at
FROM driver_event_log`
	args := []any{}
	if runID != nil {
		query += ` WHERE route_run_id=?`
		args = append(args, *runID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DriverEvent
	for rows.Next() {
		var ev domain.DriverEvent
		var rid sql.NullInt64
		var payload sql.NullString
		if err := rows.Scan(&ev.ID, &rid, &ev.DriverUserID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if rid.Valid {
			ev.RouteRunID = &rid.Int64
		}
		if payload.Valid {
			ev.PayloadJSON = &payload.String
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}
