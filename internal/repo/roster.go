package repo

import (
	"context"

	"curbside/internal/domain"
)

func (r Repo) UpsertUserRole(ctx context.Context, userID, role, now string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO user_role(user_id,role,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(user_id) DO UPDATE SET role=excluded.role, updated_at=excluded.updated_at`,
		userID, role, now, now)
	return err
}

func (r Repo) InsertVehicle(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO vehicle(plate_number,capacity_kg,active,created_at) VALUES (?,?,?,?)`,
		v.PlateNumber, v.CapacityKg, v.Active, v.CreatedAt)
	if err != nil {
		return v, err
	}
	v.ID, err = res.LastInsertId()
	return v, err
}

func (r Repo) InsertDriverProfile(ctx context.Context, p domain.DriverProfile) (domain.DriverProfile, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO driver_profile(user_id,vehicle_id,active,created_at,updated_at) VALUES (?,?,?,?,?)`,
		p.UserID, nullableIDPtr(p.VehicleID), p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// ActiveDriverIDs returns user ids with an active driver profile and the
// driver role, ordered by user id so assignment is deterministic.
func (r Repo) ActiveDriverIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT p.user_id
FROM driver_profile p
JOIN user_role u ON u.user_id = p.user_id
WHERE p.active=1 AND u.role='driver'
ORDER BY p.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
