package engine

import (
	"context"
	"fmt"

	"curbside/internal/domain"
	"curbside/internal/engine/auth"
)

// BuildKpiSnapshot computes the operational KPIs for a date from live data,
// persists them as the daily snapshot, and returns them. Re-running for the
// same date overwrites the snapshot.
func (e *Engine) BuildKpiSnapshot(ctx context.Context, caller auth.Identity, date string) (domain.KpiSnapshot, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.KpiSnapshot{}, err
	}
	if date == "" {
		date = e.Today()
	}
	return e.RefreshKpiSnapshot(ctx, date)
}

// RefreshKpiSnapshot is the unauthenticated core of BuildKpiSnapshot, used by
// the scheduled nightly refresh.
func (e *Engine) RefreshKpiSnapshot(ctx context.Context, date string) (domain.KpiSnapshot, error) {
	var s domain.KpiSnapshot
	var err error
	s.Date = date

	if s.PlannedRuns, err = e.Repo.CountRunsForDate(ctx, date); err != nil {
		return s, fmt.Errorf("count runs: %w", err)
	}
	if s.CompletedRuns, err = e.Repo.CountCompletedRunsForDate(ctx, date); err != nil {
		return s, fmt.Errorf("count completed runs: %w", err)
	}
	if s.OpenReports, err = e.Repo.CountReportsByStatus(ctx, "open"); err != nil {
		return s, fmt.Errorf("count open reports: %w", err)
	}
	if s.ResolvedReports, err = e.Repo.CountReportsByStatus(ctx, "resolved"); err != nil {
		return s, fmt.Errorf("count resolved reports: %w", err)
	}
	if s.AverageResponseHours, err = e.Repo.AverageResponseHours(ctx); err != nil {
		return s, fmt.Errorf("average response: %w", err)
	}
	if s.AvgRunDurationMinutes, err = e.Repo.AverageRunDurationMinutes(ctx, date); err != nil {
		return s, fmt.Errorf("average run duration: %w", err)
	}
	if s.TotalDistanceKm, err = e.Repo.TotalPlannedDistanceKm(ctx, date); err != nil {
		return s, fmt.Errorf("total distance: %w", err)
	}
	s.AverageResponseHours = round2(s.AverageResponseHours)
	s.AvgRunDurationMinutes = round2(s.AvgRunDurationMinutes)
	s.TotalDistanceKm = round2(s.TotalDistanceKm)

	if err := e.Repo.UpsertKpiSnapshot(ctx, s, e.nowString()); err != nil {
		return s, fmt.Errorf("persist snapshot: %w", err)
	}
	return s, nil
}

// ListDriverEvents returns recent audit log entries; admin only.
func (e *Engine) ListDriverEvents(ctx context.Context, caller auth.Identity, runID *int64, limit int) ([]domain.DriverEvent, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return e.Repo.ListRecentDriverEvents(ctx, runID, limit)
}

// ZoneDemandDashboard returns the scored zone demand for a date; admin only.
func (e *Engine) ZoneDemandDashboard(ctx context.Context, caller auth.Identity, date string) ([]domain.ZoneDemand, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if date == "" {
		date = e.Today()
	}
	return e.RefreshForecasts(ctx, date)
}
