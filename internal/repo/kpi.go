package repo

import (
	"context"

	"curbside/internal/domain"
)

func (r Repo) countRow(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (r Repo) floatRow(ctx context.Context, query string, args ...any) (float64, error) {
	var v float64
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&v)
	return v, err
}

func (r Repo) CountRunsForDate(ctx context.Context, date string) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM route_run WHERE run_date=?`, date)
}

func (r Repo) CountCompletedRunsForDate(ctx context.Context, date string) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM route_run WHERE run_date=? AND status='completed'`, date)
}

func (r Repo) CountReportsByStatus(ctx context.Context, status string) (int, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM citizen_report WHERE status=?`, status)
}

// AverageResponseHours averages created-to-last-update time over resolved
// reports. Timestamps are RFC3339 strings; julianday turns them into days.
func (r Repo) AverageResponseHours(ctx context.Context) (float64, error) {
	return r.floatRow(ctx, `SELECT COALESCE(AVG((julianday(updated_at) - julianday(created_at)) * 24.0), 0)
FROM citizen_report WHERE status='resolved'`)
}

func (r Repo) AverageRunDurationMinutes(ctx context.Context, date string) (float64, error) {
	return r.floatRow(ctx, `SELECT COALESCE(AVG((julianday(completed_at) - julianday(started_at)) * 1440.0), 0)
FROM route_run
WHERE run_date=? AND status='completed' AND started_at IS NOT NULL AND completed_at IS NOT NULL`, date)
}

func (r Repo) TotalPlannedDistanceKm(ctx context.Context, date string) (float64, error) {
	return r.floatRow(ctx, `SELECT COALESCE(SUM(planned_distance_km), 0) FROM route_run WHERE run_date=?`, date)
}

func (r Repo) UpsertKpiSnapshot(ctx context.Context, s domain.KpiSnapshot, now string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO kpi_daily_snapshot(snapshot_date,planned_runs,completed_runs,open_reports,resolved_reports,average_response_hours,avg_run_duration_minutes,total_distance_km,created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(snapshot_date) DO UPDATE SET
planned_runs=excluded.planned_runs,
completed_runs=excluded.completed_runs,
open_reports=excluded.open_reports,
resolved_reports=excluded.resolved_reports,
average_response_hours=excluded.average_response_hours,
avg_run_duration_minutes=excluded.avg_run_duration_minutes,
total_distance_km=excluded.total_distance_km,
created_at=excluded.created_at`,
		s.Date, s.PlannedRuns, s.CompletedRuns, s.OpenReports, s.ResolvedReports,
		s.AverageResponseHours, s.AvgRunDurationMinutes, s.TotalDistanceKm, now)
	return err
}
