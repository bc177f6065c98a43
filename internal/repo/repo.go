package repo

import (
	"context"
	"database/sql"
	"errors"

	"curbside/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const reportColumns = `id,reporter_user_id,zone_id,category,description,latitude,longitude,status,created_at,updated_at`

func scanReport(scan func(dest ...any) error) (domain.CitizenReport, error) {
	var r domain.CitizenReport
	var zoneID sql.NullInt64
	err := scan(&r.ID, &r.ReporterUserID, &zoneID, &r.Category, &r.Description,
		&r.Latitude, &r.Longitude, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if zoneID.Valid {
		r.ZoneID = &zoneID.Int64
	}
	return r, nil
}

func (r Repo) InsertReport(ctx context.Context, rep domain.CitizenReport) (domain.CitizenReport, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO citizen_report(reporter_user_id,zone_id,category,description,latitude,longitude,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		rep.ReporterUserID, nullableIDPtr(rep.ZoneID), rep.Category, rep.Description,
		rep.Latitude, rep.Longitude, rep.Status, rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		return rep, err
	}
	rep.ID, err = res.LastInsertId()
	return rep, err
}

func (r Repo) GetReport(ctx context.Context, id int64) (domain.CitizenReport, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM citizen_report WHERE id=?`, id)
	return scanReport(row.Scan)
}

func (r Repo) listReports(ctx context.Context, query string, args ...any) ([]domain.CitizenReport, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CitizenReport
	for rows.Next() {
		rep, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}

func (r Repo) ListReportsByUser(ctx context.Context, userID string) ([]domain.CitizenReport, error) {
	return r.listReports(ctx, `SELECT `+reportColumns+` FROM citizen_report WHERE reporter_user_id=? ORDER BY created_at DESC, id DESC`, userID)
}

// ListOpenReports returns reports still in the collection pipeline
// (open or in_review), newest first.
func (r Repo) ListOpenReports(ctx context.Context) ([]domain.CitizenReport, error) {
	return r.listReports(ctx, `SELECT `+reportColumns+` FROM citizen_report WHERE status IN ('open','in_review') ORDER BY created_at DESC, id DESC`)
}

func (r Repo) ListAllReports(ctx context.Context) ([]domain.CitizenReport, error) {
	return r.listReports(ctx, `SELECT `+reportColumns+` FROM citizen_report ORDER BY created_at DESC, id DESC`)
}

func (r Repo) UpdateReportContent(ctx context.Context, id int64, category, description, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE citizen_report SET category=?, description=?, updated_at=? WHERE id=?`,
		category, description, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateReportStatus(ctx context.Context, id int64, status, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE citizen_report SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteReport(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM citizen_report WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenReportWithWard pairs an open report with its zone's ward, when any.
type OpenReportWithWard struct {
	Report domain.CitizenReport
	WardID *int64
}

// ListOpenReportsWithWard left-joins open reports to their zone so dispatch
// can apply a ward filter. Reports without a zone carry a nil WardID.
func (r Repo) ListOpenReportsWithWard(ctx context.Context) ([]OpenReportWithWard, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT r.id,r.reporter_user_id,r.zone_id,r.category,r.description,r.latitude,r.longitude,r.status,r.created_at,r.updated_at,z.ward_id
FROM citizen_report r
LEFT JOIN zone z ON z.id = r.zone_id
WHERE r.status='open'
ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []OpenReportWithWard
	for rows.Next() {
		var row OpenReportWithWard
		var zoneID, wardID sql.NullInt64
		if err := rows.Scan(&row.Report.ID, &row.Report.ReporterUserID, &zoneID, &row.Report.Category,
			&row.Report.Description, &row.Report.Latitude, &row.Report.Longitude, &row.Report.Status,
			&row.Report.CreatedAt, &row.Report.UpdatedAt, &wardID); err != nil {
			return nil, err
		}
		if zoneID.Valid {
			row.Report.ZoneID = &zoneID.Int64
		}
		if wardID.Valid {
			row.WardID = &wardID.Int64
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// ClaimReportTx conditionally moves an open report to in_review. It returns
// false when the report was already consumed by a concurrent dispatch.
func (r Repo) ClaimReportTx(ctx context.Context, tx *sql.Tx, id int64, updatedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE citizen_report SET status='in_review', updated_at=? WHERE id=? AND status='open'`,
		updatedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountOpenReportsByZone groups open reports by zone; zoneless reports are
// not counted (they contribute no zone demand).
func (r Repo) CountOpenReportsByZone(ctx context.Context) (map[int64]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT zone_id, COUNT(*) FROM citizen_report WHERE status='open' AND zone_id IS NOT NULL GROUP BY zone_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var zoneID int64
		var n int
		if err := rows.Scan(&zoneID, &n); err != nil {
			return nil, err
		}
		counts[zoneID] = n
	}
	return counts, rows.Err()
}

func (r Repo) InsertRoadConditionReport(ctx context.Context, tx *sql.Tx, rep domain.RoadConditionReport) (domain.RoadConditionReport, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO road_condition_report(reporter_user_id,zone_id,severity,description,latitude,longitude,created_at)
VALUES (?,?,?,?,?,?,?)`,
		rep.ReporterUserID, nullableIDPtr(rep.ZoneID), rep.Severity, rep.Description,
		nullableFloatPtr(rep.Latitude), nullableFloatPtr(rep.Longitude), rep.CreatedAt)
	if err != nil {
		return rep, err
	}
	rep.ID, err = res.LastInsertId()
	return rep, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIDPtr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
