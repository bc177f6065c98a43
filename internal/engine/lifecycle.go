package engine

import (
	"context"
	"fmt"
	"strings"

	"curbside/internal/domain"
	"curbside/internal/engine/auth"
	"curbside/internal/events"
)

var validStopStatuses = map[string]bool{
	"pending": true,
	"done":    true,
	"skipped": true,
}

// StopUpdateResult reports the stop and run state after a driver update.
type StopUpdateResult struct {
	Stop         domain.RouteStop `json:"stop"`
	Run          domain.RouteRun  `json:"run"`
	RunCompleted bool             `json:"run_completed"`
}

// GetAssignedRun returns the driver's current run for a date with its stops
// in sequence order. Completed runs are not returned.
func (e *Engine) GetAssignedRun(ctx context.Context, caller auth.Identity, date string) (domain.RunWithStops, error) {
	if _, err := auth.RequireRole(caller, domain.RoleDriver); err != nil {
		return domain.RunWithStops{}, err
	}
	if date == "" {
		date = e.Today()
	}
	run, err := e.Repo.LatestOpenRunForDriver(ctx, caller.UserID, date)
	if err != nil {
		return domain.RunWithStops{}, err
	}
	stops, err := e.Repo.ListStopsByRun(ctx, run.ID)
	if err != nil {
		return domain.RunWithStops{}, err
	}
	return domain.RunWithStops{Run: run, Stops: stops}, nil
}

// GetRunWithStops returns any run with its stops; admin dashboards use it.
func (e *Engine) GetRunWithStops(ctx context.Context, caller auth.Identity, runID int64) (domain.RunWithStops, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.RunWithStops{}, err
	}
	run, err := e.Repo.GetRun(ctx, runID)
	if err != nil {
		return domain.RunWithStops{}, err
	}
	stops, err := e.Repo.ListStopsByRun(ctx, runID)
	if err != nil {
		return domain.RunWithStops{}, err
	}
	return domain.RunWithStops{Run: run, Stops: stops}, nil
}

// SubmitStopUpdate records a driver's progress on one stop. The whole
// sequence is one transaction: ownership check, stop write, run start on
// first activity, run completion when no pending stops remain, audit event.
// Two drivers racing on the same run serialize on the transaction; the
// completion guard keeps a completed run from being rewritten.
func (e *Engine) SubmitStopUpdate(ctx context.Context, caller auth.Identity, runID, stopID int64, status string, notes *string) (StopUpdateResult, error) {
	if _, err := auth.RequireRole(caller, domain.RoleDriver); err != nil {
		return StopUpdateResult{}, err
	}
	if !validStopStatuses[status] {
		return StopUpdateResult{}, fmt.Errorf("invalid stop status %q", status)
	}
	// Whitespace-only notes persist as null.
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if trimmed == "" {
			notes = nil
		} else {
			notes = &trimmed
		}
	}

	now := e.nowString()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return StopUpdateResult{}, err
	}
	defer tx.Rollback()

	run, err := e.Repo.GetRunTx(ctx, tx, runID)
	if err != nil {
		return StopUpdateResult{}, err
	}
	if run.DriverUserID != nil && *run.DriverUserID != caller.UserID && caller.Role != domain.RoleAdmin {
		return StopUpdateResult{}, auth.ForbiddenError{Reason: "run is assigned to another driver"}
	}

	var completedAt *string
	if status == "done" {
		completedAt = &now
	}
	stop, err := e.Repo.UpdateStopTx(ctx, tx, runID, stopID, status, notes, completedAt, now)
	if err != nil {
		return StopUpdateResult{}, err
	}

	if run.Status == "planned" {
		if err := e.Repo.StartRunTx(ctx, tx, runID, now); err != nil {
			return StopUpdateResult{}, err
		}
	}

	pending, err := e.Repo.CountPendingStopsTx(ctx, tx, runID)
	if err != nil {
		return StopUpdateResult{}, err
	}
	runCompleted := pending == 0
	if runCompleted {
		if err := e.Repo.CompleteRunTx(ctx, tx, runID, now); err != nil {
			return StopUpdateResult{}, err
		}
	}

	if err := e.Events.Append(ctx, tx, "stop_update", &runID, caller.UserID, events.EventPayload{
		"stop_id": stopID,
		"status":  status,
		"notes":   notes,
	}); err != nil {
		return StopUpdateResult{}, err
	}

	updated, err := e.Repo.GetRunTx(ctx, tx, runID)
	if err != nil {
		return StopUpdateResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return StopUpdateResult{}, err
	}
	return StopUpdateResult{Stop: stop, Run: updated, RunCompleted: runCompleted}, nil
}

// RoadConditionInput is a driver's report of a hazard on the road network.
type RoadConditionInput struct {
	RunID       *int64
	ZoneID      *int64
	Severity    string
	Description string
	Latitude    *float64
	Longitude   *float64
}

var validSeverities = map[string]bool{"low": true, "medium": true, "high": true}

// SubmitRoadConditionIssue files a road condition report from a driver and
// logs it against the run they were on, when any.
func (e *Engine) SubmitRoadConditionIssue(ctx context.Context, caller auth.Identity, in RoadConditionInput) (domain.RoadConditionReport, error) {
	if _, err := auth.RequireRole(caller, domain.RoleDriver); err != nil {
		return domain.RoadConditionReport{}, err
	}
	if in.Severity == "" {
		in.Severity = "medium"
	}
	if !validSeverities[in.Severity] {
		return domain.RoadConditionReport{}, fmt.Errorf("invalid severity %q", in.Severity)
	}
	if in.Description == "" {
		return domain.RoadConditionReport{}, fmt.Errorf("description is required")
	}

	now := e.nowString()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RoadConditionReport{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.InsertRoadConditionReport(ctx, tx, domain.RoadConditionReport{
		ReporterUserID: caller.UserID,
		ZoneID:         in.ZoneID,
		Severity:       in.Severity,
		Description:    in.Description,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		CreatedAt:      now,
	})
	if err != nil {
		return domain.RoadConditionReport{}, err
	}

	if err := e.Events.Append(ctx, tx, "road_condition_report", in.RunID, caller.UserID, events.EventPayload{
		"report_id": rep.ID,
		"severity":  in.Severity,
	}); err != nil {
		return domain.RoadConditionReport{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RoadConditionReport{}, err
	}
	return rep, nil
}
