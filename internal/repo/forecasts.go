package repo

import (
	"context"

	"curbside/internal/domain"
)

// UpsertForecast writes a zone's forecast for a date; recomputation
// overwrites, never duplicates (unique on zone + date).
func (r Repo) UpsertForecast(ctx context.Context, f domain.WasteForecast) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO waste_forecast(zone_id,forecast_date,predicted_volume_kg,confidence,created_at)
VALUES (?,?,?,?,?)
ON CONFLICT(zone_id, forecast_date) DO UPDATE SET
predicted_volume_kg=excluded.predicted_volume_kg,
confidence=excluded.confidence,
created_at=excluded.created_at`,
		f.ZoneID, f.ForecastDate, f.PredictedVolumeKg, f.Confidence, f.CreatedAt)
	return err
}

func (r Repo) GetForecast(ctx context.Context, zoneID int64, date string) (domain.WasteForecast, error) {
	var f domain.WasteForecast
	err := r.DB.QueryRowContext(ctx, `SELECT id,zone_id,forecast_date,predicted_volume_kg,confidence,created_at
FROM waste_forecast WHERE zone_id=? AND forecast_date=?`, zoneID, date).
		Scan(&f.ID, &f.ZoneID, &f.ForecastDate, &f.PredictedVolumeKg, &f.Confidence, &f.CreatedAt)
	if err != nil {
		return f, err
	}
	return f, nil
}

// ForecastRow is a persisted forecast joined to its zone name.
type ForecastRow struct {
	ZoneID            int64   `json:"zone_id"`
	ZoneName          string  `json:"zone_name"`
	ForecastDate      string  `json:"forecast_date"`
	PredictedVolumeKg float64 `json:"predicted_volume_kg"`
	Confidence        float64 `json:"confidence"`
}

// ListForecastsForDate returns forecasts for a date ordered by predicted
// volume, heaviest first.
func (r Repo) ListForecastsForDate(ctx context.Context, date string) ([]ForecastRow, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT f.zone_id, z.name, f.forecast_date, f.predicted_volume_kg, f.confidence
FROM waste_forecast f
JOIN zone z ON z.id = f.zone_id
WHERE f.forecast_date=?
ORDER BY f.predicted_volume_kg DESC, f.zone_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ForecastRow
	for rows.Next() {
		var row ForecastRow
		if err := rows.Scan(&row.ZoneID, &row.ZoneName, &row.ForecastDate, &row.PredictedVolumeKg, &row.Confidence); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
