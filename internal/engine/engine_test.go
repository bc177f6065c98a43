package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"curbside/internal/db"
	"curbside/internal/domain"
	"curbside/internal/engine"
	"curbside/internal/engine/auth"
	"curbside/internal/migrate"
	"curbside/internal/repo"
	"curbside/internal/routing"
)

var (
	adminID   = auth.Identity{UserID: "admin-1", Role: domain.RoleAdmin}
	driverA   = auth.Identity{UserID: "driver-a", Role: domain.RoleDriver}
	driverB   = auth.Identity{UserID: "driver-b", Role: domain.RoleDriver}
	citizenID = auth.Identity{UserID: "citizen-1", Role: domain.RoleCitizen}
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
	ZoneA  domain.Zone
	ZoneB  domain.Zone
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	ward, err := eng.CreateWard(ctx, adminID, "North Ward", "NW")
	if err != nil {
		t.Fatalf("create ward: %v", err)
	}
	zoneA, err := eng.CreateZone(ctx, adminID, ward.ID, "Zone A", "NW-A", nil, nil)
	if err != nil {
		t.Fatalf("create zone a: %v", err)
	}
	zoneB, err := eng.CreateZone(ctx, adminID, ward.ID, "Zone B", "NW-B", nil, nil)
	if err != nil {
		t.Fatalf("create zone b: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, ZoneA: zoneA, ZoneB: zoneB}
}

func (env testEnv) addDrivers(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := env.Engine.RegisterDriver(env.Ctx, adminID, id, nil); err != nil {
			t.Fatalf("register driver %s: %v", id, err)
		}
	}
}

func (env testEnv) fileReport(t *testing.T, zoneID int64, lat, lng float64) domain.CitizenReport {
	t.Helper()
	rep, err := env.Engine.CreateReport(env.Ctx, citizenID, engine.ReportInput{
		ZoneID:      &zoneID,
		Category:    "uncollected",
		Description: "bags left at curb",
		Latitude:    lat,
		Longitude:   lng,
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return rep
}

func TestForecastScoringAndIdempotence(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.fileReport(t, env.ZoneA.ID, 35.68+float64(i)*0.01, 139.76)
	}
	for i := 0; i < 2; i++ {
		env.fileReport(t, env.ZoneB.ID, 35.70+float64(i)*0.01, 139.80)
	}

	demands, err := env.Engine.RefreshForecasts(env.Ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(demands) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(demands))
	}
	a := demands[0]
	if a.ZoneID != env.ZoneA.ID {
		t.Fatalf("expected zone A ranked first, got zone %d", a.ZoneID)
	}
	if a.PredictedVolumeKg != 315 {
		t.Errorf("zone A volume = %v, want 315", a.PredictedVolumeKg)
	}
	if a.Confidence != 0.65 {
		t.Errorf("zone A confidence = %v, want 0.65", a.Confidence)
	}
	if a.Score != 36.3 {
		t.Errorf("zone A score = %v, want 36.3", a.Score)
	}
	b := demands[1]
	if b.PredictedVolumeKg != 250 || b.Confidence != 0.6 || b.Score != 25 {
		t.Errorf("zone B demand = %+v, want volume 250 confidence 0.6 score 25", b)
	}

	// re-running overwrites rather than duplicates
	if _, err := env.Engine.RefreshForecasts(env.Ctx, "2025-06-01"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	rows, err := env.Engine.ListForecasts(env.Ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("list forecasts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 forecast rows after rerun, got %d", len(rows))
	}
	if rows[0].PredictedVolumeKg != 315 {
		t.Errorf("heaviest forecast = %v, want 315", rows[0].PredictedVolumeKg)
	}
}

func TestForecastConfidenceIsCapped(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.fileReport(t, env.ZoneA.ID, 35.68, 139.76)
	}
	demands, err := env.Engine.RefreshForecasts(env.Ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if demands[0].Confidence != 0.95 {
		t.Errorf("confidence = %v, want capped at 0.95", demands[0].Confidence)
	}
}

func TestDispatchWithNoOpenReports(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	res, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Runs) != 0 || res.ClaimedReports != 0 {
		t.Fatalf("expected empty dispatch, got %+v", res)
	}
}

func TestDispatchSplitsReportsAcrossDrivers(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a", "driver-b")
	for i := 0; i < 6; i++ {
		env.fileReport(t, env.ZoneA.ID, 35.68+float64(i)*0.01, 139.76+float64(i)*0.005)
	}

	res, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(res.Runs))
	}
	if res.ClaimedReports != 6 {
		t.Fatalf("claimed = %d, want 6", res.ClaimedReports)
	}

	seen := map[string]bool{}
	for _, run := range res.Runs {
		if run.Status != "planned" {
			t.Errorf("run %d status = %s, want planned", run.ID, run.Status)
		}
		if run.DriverUserID == nil {
			t.Fatalf("run %d has no driver", run.ID)
		}
		seen[*run.DriverUserID] = true
		if run.PlannedDistanceKm <= 0 {
			t.Errorf("run %d distance = %v, want > 0", run.ID, run.PlannedDistanceKm)
		}
		stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, run.ID)
		if err != nil {
			t.Fatalf("list stops: %v", err)
		}
		if len(stops) != 3 {
			t.Fatalf("run %d has %d stops, want 3", run.ID, len(stops))
		}
		for i, s := range stops {
			if s.Sequence != i+1 {
				t.Errorf("stop %d sequence = %d, want %d", s.ID, s.Sequence, i+1)
			}
			if s.Status != "pending" {
				t.Errorf("stop %d status = %s, want pending", s.ID, s.Status)
			}
			if s.SourceReportID == nil {
				t.Errorf("stop %d has no source report", s.ID)
			}
		}
	}
	if !seen["driver-a"] || !seen["driver-b"] {
		t.Errorf("drivers assigned = %v, want both driver-a and driver-b", seen)
	}

	// every claimed report left the open pool
	open, err := env.Engine.Repo.ListOpenReportsWithWard(env.Ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open reports after dispatch, got %d", len(open))
	}

	// a second pass finds nothing to plan
	again, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{})
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if len(again.Runs) != 0 {
		t.Fatalf("expected idempotent dispatch, got %d new runs", len(again.Runs))
	}
}

func TestDispatchUsesRoutingServiceDistance(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	env.fileReport(t, env.ZoneA.ID, 35.68, 139.76)
	env.fileReport(t, env.ZoneA.ID, 35.70, 139.78)

	static := &routing.Static{DistanceKm: 42.512, OK: true}
	env.Engine.Trips = static

	res, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(res.Runs))
	}
	if res.Runs[0].PlannedDistanceKm != 42.51 {
		t.Errorf("distance = %v, want 42.51 from routing service", res.Runs[0].PlannedDistanceKm)
	}
	if static.Calls != 1 {
		t.Errorf("routing service calls = %d, want 1", static.Calls)
	}
}

func TestDispatchWardFilter(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	otherWard, err := env.Engine.CreateWard(env.Ctx, adminID, "South Ward", "SW")
	if err != nil {
		t.Fatalf("create ward: %v", err)
	}
	otherZone, err := env.Engine.CreateZone(env.Ctx, adminID, otherWard.ID, "Zone S", "SW-S", nil, nil)
	if err != nil {
		t.Fatalf("create zone: %v", err)
	}
	inWard := env.fileReport(t, env.ZoneA.ID, 35.68, 139.76)
	env.fileReport(t, otherZone.ID, 35.50, 139.50)

	res, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{WardID: &env.ZoneA.WardID})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Runs) != 1 || res.ClaimedReports != 1 {
		t.Fatalf("expected 1 run from 1 report, got %+v", res)
	}
	stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, res.Runs[0].ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(stops) != 1 || *stops[0].SourceReportID != inWard.ID {
		t.Fatalf("expected the in-ward report as the only stop")
	}
}

func dispatchOneRun(t *testing.T, env testEnv, reports int) domain.RouteRun {
	t.Helper()
	for i := 0; i < reports; i++ {
		env.fileReport(t, env.ZoneA.ID, 35.68+float64(i)*0.01, 139.76)
	}
	res, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(res.Runs))
	}
	return res.Runs[0]
}

func TestStopUpdatesDriveRunLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	run := dispatchOneRun(t, env, 2)

	assigned, err := env.Engine.GetAssignedRun(env.Ctx, driverA, "2025-06-01")
	if err != nil {
		t.Fatalf("get assigned run: %v", err)
	}
	if assigned.Run.ID != run.ID || len(assigned.Stops) != 2 {
		t.Fatalf("assigned run = %d with %d stops, want run %d with 2", assigned.Run.ID, len(assigned.Stops), run.ID)
	}

	// first update starts the run
	first, err := env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, assigned.Stops[0].ID, "done", nil)
	if err != nil {
		t.Fatalf("first stop update: %v", err)
	}
	if first.Run.Status != "in_progress" {
		t.Errorf("run status = %s, want in_progress", first.Run.Status)
	}
	if first.Run.StartedAt == nil {
		t.Errorf("expected started_at to be set")
	}
	if first.RunCompleted {
		t.Errorf("run reported complete with a pending stop")
	}
	if first.Stop.CompletedAt == nil {
		t.Errorf("done stop should carry completed_at")
	}

	// last update completes the run; skipped counts as handled
	last, err := env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, assigned.Stops[1].ID, "skipped", nil)
	if err != nil {
		t.Fatalf("last stop update: %v", err)
	}
	if !last.RunCompleted || last.Run.Status != "completed" {
		t.Fatalf("run = %s completed=%v, want completed", last.Run.Status, last.RunCompleted)
	}
	if last.Run.CompletedAt == nil {
		t.Errorf("expected completed_at to be set")
	}
	if last.Stop.CompletedAt != nil {
		t.Errorf("skipped stop should not carry completed_at")
	}
	if last.Run.StartedAt == nil || *last.Run.StartedAt != *first.Run.StartedAt {
		t.Errorf("started_at changed across updates")
	}
}

func TestStopUpdateRejectsWrongDriver(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	run := dispatchOneRun(t, env, 1)
	stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.Engine.SubmitStopUpdate(env.Ctx, driverB, run.ID, stops[0].ID, "done", nil)
	var forbidden auth.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	// the run stayed untouched
	got, err := env.Engine.Repo.GetRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "planned" {
		t.Errorf("run status = %s, want planned after rejected update", got.Status)
	}
}

func TestUnassignedRunAcceptsAnyDriver(t *testing.T) {
	env := newTestEnv(t)
	// no drivers registered: dispatch produces one unassigned run
	run := dispatchOneRun(t, env, 1)
	if run.DriverUserID != nil {
		t.Fatalf("expected unassigned run, got driver %s", *run.DriverUserID)
	}
	stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	res, err := env.Engine.SubmitStopUpdate(env.Ctx, driverB, run.ID, stops[0].ID, "done", nil)
	if err != nil {
		t.Fatalf("stop update on unassigned run: %v", err)
	}
	if !res.RunCompleted {
		t.Errorf("single-stop run should complete")
	}
}

func TestStopUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	run := dispatchOneRun(t, env, 1)
	stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, stops[0].ID, "finished", nil)
	if err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected invalid status error, got %v", err)
	}
	// nothing written
	got, err := env.Engine.Repo.GetRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "planned" {
		t.Errorf("run status = %s, want planned", got.Status)
	}

	// stop id from a different run reads as not found
	_, err = env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, stops[0].ID+999, "done", nil)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// citizens cannot update stops
	_, err = env.Engine.SubmitStopUpdate(env.Ctx, citizenID, run.ID, stops[0].ID, "done", nil)
	var forbidden auth.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError for citizen, got %v", err)
	}
}

func TestStopNotesAreTrimmed(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	run := dispatchOneRun(t, env, 1)
	stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}

	// whitespace-only notes persist as null
	blank := "   "
	res, err := env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, stops[0].ID, "pending", &blank)
	if err != nil {
		t.Fatalf("stop update: %v", err)
	}
	if res.Stop.Notes != nil {
		t.Errorf("notes = %q, want nil for whitespace-only input", *res.Stop.Notes)
	}

	padded := "  gate locked  "
	res, err = env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, stops[0].ID, "done", &padded)
	if err != nil {
		t.Fatalf("stop update: %v", err)
	}
	if res.Stop.Notes == nil || *res.Stop.Notes != "gate locked" {
		t.Fatalf("notes = %v, want %q", res.Stop.Notes, "gate locked")
	}

	// the audit event carries the trimmed notes
	events, err := env.Engine.ListDriverEvents(env.Ctx, adminID, &run.ID, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected audit events for the run")
	}
	newest := events[0]
	if newest.EventType != "stop_update" {
		t.Errorf("event type = %s, want stop_update", newest.EventType)
	}
	if newest.PayloadJSON == nil || !strings.Contains(*newest.PayloadJSON, "gate locked") {
		t.Errorf("event payload = %v, want trimmed notes in it", newest.PayloadJSON)
	}
}

func TestRoadConditionReporting(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	run := dispatchOneRun(t, env, 1)

	rep, err := env.Engine.SubmitRoadConditionIssue(env.Ctx, driverA, engine.RoadConditionInput{
		RunID:       &run.ID,
		ZoneID:      &env.ZoneA.ID,
		Severity:    "high",
		Description: "street flooded near stop 1",
	})
	if err != nil {
		t.Fatalf("submit issue: %v", err)
	}
	if rep.ID == 0 || rep.ReporterUserID != "driver-a" {
		t.Fatalf("unexpected report %+v", rep)
	}

	_, err = env.Engine.SubmitRoadConditionIssue(env.Ctx, driverA, engine.RoadConditionInput{
		Severity: "extreme", Description: "x",
	})
	if err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected severity validation error, got %v", err)
	}

	// omitted severity defaults to medium
	rep, err = env.Engine.SubmitRoadConditionIssue(env.Ctx, driverA, engine.RoadConditionInput{
		Description: "pothole on main street",
	})
	if err != nil {
		t.Fatalf("submit without severity: %v", err)
	}
	if rep.Severity != "medium" {
		t.Errorf("severity = %s, want medium", rep.Severity)
	}

	events, err := env.Engine.ListDriverEvents(env.Ctx, adminID, nil, 1)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "road_condition_report" {
		t.Errorf("newest event = %+v, want road_condition_report", events)
	}
}

func TestReportOwnershipAndEditWindow(t *testing.T) {
	env := newTestEnv(t)
	rep := env.fileReport(t, env.ZoneA.ID, 35.68, 139.76)

	other := auth.Identity{UserID: "citizen-2", Role: domain.RoleCitizen}
	_, err := env.Engine.GetReport(env.Ctx, other, rep.ID)
	var forbidden auth.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError for other citizen, got %v", err)
	}
	if _, err := env.Engine.GetReport(env.Ctx, adminID, rep.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	updated, err := env.Engine.UpdateMyReport(env.Ctx, citizenID, rep.ID, "overflowing_bin", "bin is overflowing")
	if err != nil {
		t.Fatalf("update own report: %v", err)
	}
	if updated.Category != "overflowing_bin" {
		t.Errorf("category = %s, want overflowing_bin", updated.Category)
	}

	// once dispatch claims the report it is no longer editable
	env.addDrivers(t, "driver-a")
	if _, err := env.Engine.GenerateDailyRuns(env.Ctx, engine.DispatchOptions{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	_, err = env.Engine.UpdateMyReport(env.Ctx, citizenID, rep.ID, "other", "changed my mind")
	if err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected edit rejection after claim, got %v", err)
	}
	if err := env.Engine.DeleteMyReport(env.Ctx, citizenID, rep.ID); err == nil {
		t.Fatalf("expected delete rejection after claim")
	}

	closed, err := env.Engine.CloseReport(env.Ctx, adminID, rep.ID, "resolved")
	if err != nil {
		t.Fatalf("close report: %v", err)
	}
	if closed.Status != "resolved" {
		t.Errorf("status = %s, want resolved", closed.Status)
	}
}

func TestCloseReportDefaultsToResolved(t *testing.T) {
	env := newTestEnv(t)
	rep := env.fileReport(t, env.ZoneA.ID, 35.68, 139.76)

	closed, err := env.Engine.CloseReport(env.Ctx, adminID, rep.ID, "")
	if err != nil {
		t.Fatalf("close with empty status: %v", err)
	}
	if closed.Status != "resolved" {
		t.Errorf("status = %s, want resolved", closed.Status)
	}

	rep = env.fileReport(t, env.ZoneA.ID, 35.69, 139.77)
	if _, err := env.Engine.CloseReport(env.Ctx, adminID, rep.ID, "escalated"); err == nil {
		t.Fatalf("expected close status validation error")
	}
}

func TestKpiSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.addDrivers(t, "driver-a")
	run := dispatchOneRun(t, env, 2)
	stops, err := env.Engine.Repo.ListStopsByRun(env.Ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range stops {
		if _, err := env.Engine.SubmitStopUpdate(env.Ctx, driverA, run.ID, s.ID, "done", nil); err != nil {
			t.Fatalf("stop update: %v", err)
		}
	}
	env.fileReport(t, env.ZoneB.ID, 35.70, 139.80)

	snap, err := env.Engine.BuildKpiSnapshot(env.Ctx, adminID, "2025-06-01")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.PlannedRuns != 1 || snap.CompletedRuns != 1 {
		t.Errorf("runs = %d/%d, want 1 planned 1 completed", snap.PlannedRuns, snap.CompletedRuns)
	}
	if snap.OpenReports != 1 {
		t.Errorf("open reports = %d, want 1", snap.OpenReports)
	}
	if snap.TotalDistanceKm <= 0 {
		t.Errorf("total distance = %v, want > 0", snap.TotalDistanceKm)
	}

	if _, err := env.Engine.BuildKpiSnapshot(env.Ctx, citizenID, "2025-06-01"); err == nil {
		t.Fatalf("expected role rejection for citizen")
	}
}

func TestKpiAveragesAreRounded(t *testing.T) {
	env := newTestEnv(t)
	rep := env.fileReport(t, env.ZoneA.ID, 35.68, 139.76)

	// resolve 100 minutes after filing: 1.666… hours rounds to 1.67
	env.Engine.Now = func() time.Time { return time.Date(2025, 6, 1, 10, 40, 0, 0, time.UTC) }
	if _, err := env.Engine.CloseReport(env.Ctx, adminID, rep.ID, "resolved"); err != nil {
		t.Fatalf("close report: %v", err)
	}

	snap, err := env.Engine.BuildKpiSnapshot(env.Ctx, adminID, "2025-06-01")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.AverageResponseHours != 1.67 {
		t.Errorf("average response hours = %v, want 1.67", snap.AverageResponseHours)
	}
}
