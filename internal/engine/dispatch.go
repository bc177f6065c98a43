package engine

import (
	"context"
	"fmt"
	"sort"

	"curbside/internal/domain"
	"curbside/internal/events"
	"curbside/internal/geo"
	"curbside/internal/repo"
)

// DispatchOptions scope a dispatch pass.
type DispatchOptions struct {
	// Date the runs are planned for; defaults to today.
	Date string
	// WardID restricts dispatch to reports whose zone lies in this ward.
	// Reports without a zone are excluded when the filter is set.
	WardID *int64
}

// DispatchResult summarizes one dispatch pass.
type DispatchResult struct {
	Date           string            `json:"date"`
	Runs           []domain.RouteRun `json:"runs"`
	ClaimedReports int               `json:"claimed_reports"`
	SkippedReports int               `json:"skipped_reports"`
}

// GenerateDailyRuns plans collection runs for a date from the currently open
// citizen reports. Reports are ranked by their zone's demand score, split
// round-robin across active drivers, and each bucket becomes one run with
// geometrically ordered stops. Each run is committed in its own transaction;
// a report already claimed by a concurrent dispatch is skipped, and a bucket
// whose reports were all claimed elsewhere produces no run.
func (e *Engine) GenerateDailyRuns(ctx context.Context, opts DispatchOptions) (DispatchResult, error) {
	date := opts.Date
	if date == "" {
		date = e.Today()
	}
	res := DispatchResult{Date: date}

	demands, err := e.RefreshForecasts(ctx, date)
	if err != nil {
		return res, err
	}
	scores := make(map[int64]float64, len(demands))
	for _, d := range demands {
		scores[d.ZoneID] = d.Score
	}

	open, err := e.Repo.ListOpenReportsWithWard(ctx)
	if err != nil {
		return res, err
	}
	if opts.WardID != nil {
		filtered := open[:0]
		for _, row := range open {
			if row.WardID != nil && *row.WardID == *opts.WardID {
				filtered = append(filtered, row)
			}
		}
		open = filtered
	}
	if len(open) == 0 {
		return res, nil
	}

	// Highest zone demand first; within a zone, oldest report first.
	sort.SliceStable(open, func(i, j int) bool {
		si, sj := reportScore(open[i], scores), reportScore(open[j], scores)
		if si != sj {
			return si > sj
		}
		if open[i].Report.CreatedAt != open[j].Report.CreatedAt {
			return open[i].Report.CreatedAt < open[j].Report.CreatedAt
		}
		return open[i].Report.ID < open[j].Report.ID
	})

	drivers, err := e.Repo.ActiveDriverIDs(ctx)
	if err != nil {
		return res, err
	}
	buckets := bucketReports(open, drivers)

	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		var driver *string
		if len(drivers) > 0 {
			driver = &drivers[i]
		}
		run, claimed, err := e.dispatchBucket(ctx, date, opts.WardID, driver, bucket)
		if err != nil {
			return res, err
		}
		res.SkippedReports += len(bucket) - claimed
		if claimed == 0 {
			continue
		}
		res.ClaimedReports += claimed
		res.Runs = append(res.Runs, run)
	}
	return res, nil
}

func reportScore(row repo.OpenReportWithWard, scores map[int64]float64) float64 {
	if row.Report.ZoneID == nil {
		return 0
	}
	return scores[*row.Report.ZoneID]
}

// bucketReports deals ranked reports round-robin across drivers. With no
// drivers, everything lands in a single unassigned bucket.
func bucketReports(reports []repo.OpenReportWithWard, drivers []string) [][]repo.OpenReportWithWard {
	n := len(drivers)
	if n == 0 {
		n = 1
	}
	buckets := make([][]repo.OpenReportWithWard, n)
	for i, r := range reports {
		buckets[i%n] = append(buckets[i%n], r)
	}
	return buckets
}

// dispatchBucket claims a bucket's reports and materializes one run with
// ordered stops. The claim, run, stops and audit event commit atomically;
// the road-distance lookup happens after commit so a slow or failing routing
// service never holds the write transaction open.
func (e *Engine) dispatchBucket(ctx context.Context, date string, wardID *int64, driver *string, bucket []repo.OpenReportWithWard) (domain.RouteRun, int, error) {
	now := e.nowString()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RouteRun{}, 0, err
	}
	defer tx.Rollback()

	var claimed []domain.CitizenReport
	for _, row := range bucket {
		ok, err := e.Repo.ClaimReportTx(ctx, tx, row.Report.ID, now)
		if err != nil {
			return domain.RouteRun{}, 0, err
		}
		if ok {
			claimed = append(claimed, row.Report)
		}
	}
	if len(claimed) == 0 {
		return domain.RouteRun{}, 0, nil
	}

	run, err := e.Repo.InsertRunTx(ctx, tx, domain.RouteRun{
		RunDate:      date,
		WardID:       wardID,
		DriverUserID: driver,
		Status:       "planned",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.RouteRun{}, 0, err
	}

	points := make([]geo.Point, len(claimed))
	byID := make(map[int64]domain.CitizenReport, len(claimed))
	for i, rep := range claimed {
		points[i] = geo.Point{ID: rep.ID, Lat: rep.Latitude, Lng: rep.Longitude}
		byID[rep.ID] = rep
	}
	ordered := geo.OrderNearestNeighbor(points)

	for seq, p := range ordered {
		rep := byID[p.ID]
		reportID := rep.ID
		if _, err := e.Repo.InsertStopTx(ctx, tx, domain.RouteStop{
			RouteRunID:     run.ID,
			ZoneID:         rep.ZoneID,
			SourceReportID: &reportID,
			Sequence:       seq + 1,
			Latitude:       rep.Latitude,
			Longitude:      rep.Longitude,
			Action:         "collect",
			Status:         "pending",
			CreatedAt:      now,
			UpdatedAt:      now,
		}); err != nil {
			return domain.RouteRun{}, 0, err
		}
	}

	driverID := ""
	if driver != nil {
		driverID = *driver
	}
	if err := e.Events.Append(ctx, tx, "run_planned", &run.ID, driverID, events.EventPayload{
		"run_date": date,
		"stops":    len(ordered),
	}); err != nil {
		return domain.RouteRun{}, 0, err
	}

	if err := tx.Commit(); err != nil {
		return domain.RouteRun{}, 0, err
	}

	run.PlannedDistanceKm = e.routeDistanceKm(ctx, ordered)
	if err := e.Repo.UpdateRunDistance(ctx, run.ID, run.PlannedDistanceKm, e.nowString()); err != nil {
		return domain.RouteRun{}, 0, fmt.Errorf("update run %d distance: %w", run.ID, err)
	}
	return run, len(claimed), nil
}

// routeDistanceKm asks the routing service for the road distance of the
// ordered stops and falls back to the straight-line path when it cannot
// answer. Distances round to two decimals.
func (e *Engine) routeDistanceKm(ctx context.Context, ordered []geo.Point) float64 {
	var km float64
	if e.Trips != nil {
		if d, ok := e.Trips.TripDistanceKm(ctx, ordered); ok {
			km = d
		}
	}
	if km == 0 {
		km = geo.PathDistanceKm(ordered)
	}
	return round2(km)
}
