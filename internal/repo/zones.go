package repo

import (
	"context"
	"database/sql"

	"curbside/internal/domain"
)

func (r Repo) InsertWard(ctx context.Context, w domain.Ward) (domain.Ward, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO ward(name,code,created_at) VALUES (?,?,?)`,
		w.Name, w.Code, w.CreatedAt)
	if err != nil {
		return w, err
	}
	w.ID, err = res.LastInsertId()
	return w, err
}

func (r Repo) ListWards(ctx context.Context) ([]domain.Ward, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,code,created_at FROM ward ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Ward
	for rows.Next() {
		var w domain.Ward
		if err := rows.Scan(&w.ID, &w.Name, &w.Code, &w.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r Repo) GetWard(ctx context.Context, id int64) (domain.Ward, error) {
	var w domain.Ward
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,code,created_at FROM ward WHERE id=?`, id).
		Scan(&w.ID, &w.Name, &w.Code, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

func (r Repo) InsertZone(ctx context.Context, z domain.Zone) (domain.Zone, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO zone(ward_id,name,code,center_lat,center_lng,created_at) VALUES (?,?,?,?,?,?)`,
		z.WardID, z.Name, z.Code, nullableFloatPtr(z.CenterLat), nullableFloatPtr(z.CenterLng), z.CreatedAt)
	if err != nil {
		return z, err
	}
	z.ID, err = res.LastInsertId()
	return z, err
}

func scanZone(scan func(dest ...any) error) (domain.Zone, error) {
	var z domain.Zone
	var lat, lng sql.NullFloat64
	err := scan(&z.ID, &z.WardID, &z.Name, &z.Code, &lat, &lng, &z.CreatedAt)
	if err == sql.ErrNoRows {
		return z, ErrNotFound
	}
	if err != nil {
		return z, err
	}
	if lat.Valid {
		z.CenterLat = &lat.Float64
	}
	if lng.Valid {
		z.CenterLng = &lng.Float64
	}
	return z, nil
}

func (r Repo) ListZones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ward_id,name,code,center_lat,center_lng,created_at FROM zone ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Zone
	for rows.Next() {
		z, err := scanZone(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, z)
	}
	return res, rows.Err()
}

func (r Repo) GetZone(ctx context.Context, id int64) (domain.Zone, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,ward_id,name,code,center_lat,center_lng,created_at FROM zone WHERE id=?`, id)
	return scanZone(row.Scan)
}

func (r Repo) InsertCollectionPoint(ctx context.Context, p domain.CollectionPoint) (domain.CollectionPoint, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO collection_point(zone_id,label,address,latitude,longitude,active,created_at)
VALUES (?,?,?,?,?,?,?)`,
		p.ZoneID, p.Label, nullable(p.Address), p.Latitude, p.Longitude, p.Active, p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}
