package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends rows to the driver event log. The log is append-only;
// nothing in the codebase updates or deletes from it.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one audit entry inside the caller's transaction.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, eventType string, runID *int64, driverUserID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO driver_event_log(route_run_id,driver_user_id,event_type,payload_json,created_at) VALUES (?,?,?,?,?)`,
		nullableID(runID), driverUserID, eventType, string(data), ts)
	return err
}

func nullableID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
