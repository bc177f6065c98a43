package repo

import (
	"context"
	"database/sql"

	"curbside/internal/domain"
)

const runColumns = `id,run_date,ward_id,driver_user_id,vehicle_id,status,planned_distance_km,started_at,completed_at,created_at,updated_at`

func scanRun(scan func(dest ...any) error) (domain.RouteRun, error) {
	var run domain.RouteRun
	var wardID, vehicleID sql.NullInt64
	var driver, startedAt, completedAt sql.NullString
	err := scan(&run.ID, &run.RunDate, &wardID, &driver, &vehicleID, &run.Status,
		&run.PlannedDistanceKm, &startedAt, &completedAt, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	if wardID.Valid {
		run.WardID = &wardID.Int64
	}
	if vehicleID.Valid {
		run.VehicleID = &vehicleID.Int64
	}
	if driver.Valid {
		run.DriverUserID = &driver.String
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.String
	}
	return run, nil
}

func (r Repo) InsertRunTx(ctx context.Context, tx *sql.Tx, run domain.RouteRun) (domain.RouteRun, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO route_run(run_date,ward_id,driver_user_id,vehicle_id,status,planned_distance_km,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?)`,
		run.RunDate, nullableIDPtr(run.WardID), nullableStringPtr(run.DriverUserID), nullableIDPtr(run.VehicleID),
		run.Status, run.PlannedDistanceKm, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return run, err
	}
	run.ID, err = res.LastInsertId()
	return run, err
}

func (r Repo) GetRun(ctx context.Context, id int64) (domain.RouteRun, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM route_run WHERE id=?`, id)
	return scanRun(row.Scan)
}

func (r Repo) GetRunTx(ctx context.Context, tx *sql.Tx, id int64) (domain.RouteRun, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+runColumns+` FROM route_run WHERE id=?`, id)
	return scanRun(row.Scan)
}

// LatestOpenRunForDriver returns the most recently created non-completed run
// for a driver on a date.
func (r Repo) LatestOpenRunForDriver(ctx context.Context, driverUserID, runDate string) (domain.RouteRun, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM route_run
WHERE driver_user_id=? AND run_date=? AND status <> 'completed'
ORDER BY created_at DESC, id DESC LIMIT 1`, driverUserID, runDate)
	return scanRun(row.Scan)
}

func (r Repo) UpdateRunDistance(ctx context.Context, id int64, distanceKm float64, updatedAt string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE route_run SET planned_distance_km=?, updated_at=? WHERE id=?`,
		distanceKm, updatedAt, id)
	return err
}

// StartRunTx moves a planned run to in_progress. started_at is
// first-write-wins: an already-set value is preserved.
func (r Repo) StartRunTx(ctx context.Context, tx *sql.Tx, id int64, now string) error {
	_, err := tx.ExecContext(ctx, `UPDATE route_run SET status='in_progress', started_at=COALESCE(started_at, ?), updated_at=? WHERE id=? AND status='planned'`,
		now, now, id)
	return err
}

// CompleteRunTx marks a run completed; the guard keeps completed runs from
// being rewritten by a late concurrent update.
func (r Repo) CompleteRunTx(ctx context.Context, tx *sql.Tx, id int64, now string) error {
	_, err := tx.ExecContext(ctx, `UPDATE route_run SET status='completed', completed_at=?, updated_at=? WHERE id=? AND status <> 'completed'`,
		now, now, id)
	return err
}

const stopColumns = `id,route_run_id,zone_id,source_report_id,sequence,latitude,longitude,action,status,notes,completed_at,created_at,updated_at`

func scanStop(scan func(dest ...any) error) (domain.RouteStop, error) {
	var s domain.RouteStop
	var zoneID, sourceID sql.NullInt64
	var notes, completedAt sql.NullString
	err := scan(&s.ID, &s.RouteRunID, &zoneID, &sourceID, &s.Sequence, &s.Latitude, &s.Longitude,
		&s.Action, &s.Status, &notes, &completedAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if zoneID.Valid {
		s.ZoneID = &zoneID.Int64
	}
	if sourceID.Valid {
		s.SourceReportID = &sourceID.Int64
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	return s, nil
}

func (r Repo) InsertStopTx(ctx context.Context, tx *sql.Tx, s domain.RouteStop) (domain.RouteStop, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO route_stop(route_run_id,zone_id,source_report_id,sequence,latitude,longitude,action,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.RouteRunID, nullableIDPtr(s.ZoneID), nullableIDPtr(s.SourceReportID), s.Sequence,
		s.Latitude, s.Longitude, s.Action, s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.ID, err = res.LastInsertId()
	return s, err
}

// UpdateStopTx writes a driver's stop update, scoped by run id so a stop id
// from another run reads as not found.
func (r Repo) UpdateStopTx(ctx context.Context, tx *sql.Tx, runID, stopID int64, status string, notes *string, completedAt *string, now string) (domain.RouteStop, error) {
	res, err := tx.ExecContext(ctx, `UPDATE route_stop SET status=?, notes=?, completed_at=?, updated_at=? WHERE id=? AND route_run_id=?`,
		status, nullableStringPtr(notes), nullableStringPtr(completedAt), now, stopID, runID)
	if err != nil {
		return domain.RouteStop{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.RouteStop{}, ErrNotFound
	}
	row := tx.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM route_stop WHERE id=? AND route_run_id=?`, stopID, runID)
	return scanStop(row.Scan)
}

func (r Repo) CountPendingStopsTx(ctx context.Context, tx *sql.Tx, runID int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM route_stop WHERE route_run_id=? AND status='pending'`, runID).Scan(&n)
	return n, err
}

func (r Repo) ListStopsByRun(ctx context.Context, runID int64) ([]domain.RouteStop, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+stopColumns+` FROM route_stop WHERE route_run_id=? ORDER BY sequence`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RouteStop
	for rows.Next() {
		s, err := scanStop(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
