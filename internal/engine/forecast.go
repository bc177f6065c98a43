package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"curbside/internal/domain"
	"curbside/internal/repo"
)

const (
	baseVolumeKg     = 120.0
	volumePerReport  = 65.0
	baseConfidence   = 0.5
	confidencePerRpt = 0.05
	maxConfidence    = 0.95
)

// RefreshForecasts recomputes the demand forecast for every zone for the
// given date and persists it. Recomputation overwrites the prior row for the
// same zone and date. The returned rows are scored and ordered so the caller
// can prioritize zones directly: demand score is descending, zone id breaks
// ties.
func (e *Engine) RefreshForecasts(ctx context.Context, date string) ([]domain.ZoneDemand, error) {
	if date == "" {
		return nil, fmt.Errorf("forecast date is required")
	}

	zones, err := e.Repo.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := e.Repo.CountOpenReportsByZone(ctx)
	if err != nil {
		return nil, err
	}

	now := e.nowString()
	demands := make([]domain.ZoneDemand, 0, len(zones))
	for _, z := range zones {
		n := float64(counts[z.ID])
		volume := math.Round(baseVolumeKg + n*volumePerReport)
		confidence := math.Min(maxConfidence, baseConfidence+n*confidencePerRpt)
		score := n*10 + volume/50

		if err := e.Repo.UpsertForecast(ctx, domain.WasteForecast{
			ZoneID:            z.ID,
			ForecastDate:      date,
			PredictedVolumeKg: volume,
			Confidence:        confidence,
			CreatedAt:         now,
		}); err != nil {
			return nil, fmt.Errorf("upsert forecast for zone %d: %w", z.ID, err)
		}

		demands = append(demands, domain.ZoneDemand{
			ZoneID:            z.ID,
			ZoneName:          z.Name,
			Score:             score,
			PredictedVolumeKg: volume,
			Confidence:        confidence,
		})
	}

	sort.Slice(demands, func(i, j int) bool {
		if demands[i].Score != demands[j].Score {
			return demands[i].Score > demands[j].Score
		}
		return demands[i].ZoneID < demands[j].ZoneID
	})
	return demands, nil
}

// ListForecasts returns the persisted forecasts for a date.
func (e *Engine) ListForecasts(ctx context.Context, date string) ([]repo.ForecastRow, error) {
	if date == "" {
		date = e.Today()
	}
	return e.Repo.ListForecastsForDate(ctx, date)
}
