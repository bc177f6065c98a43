package engine

import (
	"context"
	"fmt"

	"curbside/internal/domain"
	"curbside/internal/engine/auth"
)

// CreateWard registers a ward; admin only.
func (e *Engine) CreateWard(ctx context.Context, caller auth.Identity, name, code string) (domain.Ward, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.Ward{}, err
	}
	if name == "" || code == "" {
		return domain.Ward{}, fmt.Errorf("ward name and code are required")
	}
	return e.Repo.InsertWard(ctx, domain.Ward{Name: name, Code: code, CreatedAt: e.nowString()})
}

// CreateZone registers a zone inside a ward; admin only.
func (e *Engine) CreateZone(ctx context.Context, caller auth.Identity, wardID int64, name, code string, centerLat, centerLng *float64) (domain.Zone, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.Zone{}, err
	}
	if name == "" || code == "" {
		return domain.Zone{}, fmt.Errorf("zone name and code are required")
	}
	if _, err := e.Repo.GetWard(ctx, wardID); err != nil {
		return domain.Zone{}, fmt.Errorf("invalid ward %d: %w", wardID, err)
	}
	return e.Repo.InsertZone(ctx, domain.Zone{
		WardID:    wardID,
		Name:      name,
		Code:      code,
		CenterLat: centerLat,
		CenterLng: centerLng,
		CreatedAt: e.nowString(),
	})
}

// ListWards returns all wards.
func (e *Engine) ListWards(ctx context.Context, caller auth.Identity) ([]domain.Ward, error) {
	if _, err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListWards(ctx)
}

// ListZones returns all zones.
func (e *Engine) ListZones(ctx context.Context, caller auth.Identity) ([]domain.Zone, error) {
	if _, err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListZones(ctx)
}

// CreateCollectionPoint registers a fixed pickup location; admin only.
func (e *Engine) CreateCollectionPoint(ctx context.Context, caller auth.Identity, p domain.CollectionPoint) (domain.CollectionPoint, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.CollectionPoint{}, err
	}
	if p.Label == "" {
		return domain.CollectionPoint{}, fmt.Errorf("collection point label is required")
	}
	if _, err := e.Repo.GetZone(ctx, p.ZoneID); err != nil {
		return domain.CollectionPoint{}, fmt.Errorf("invalid zone %d: %w", p.ZoneID, err)
	}
	p.Active = true
	p.CreatedAt = e.nowString()
	return e.Repo.InsertCollectionPoint(ctx, p)
}

// SetUserRole assigns a role to a user; admin only.
func (e *Engine) SetUserRole(ctx context.Context, caller auth.Identity, userID, role string) error {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if !auth.HasMinimumRole(role, domain.RoleCitizen) {
		return fmt.Errorf("invalid role %q", role)
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	return e.Repo.UpsertUserRole(ctx, userID, role, e.nowString())
}

// RegisterDriver grants the driver role and creates an active driver profile,
// optionally bound to a vehicle; admin only.
func (e *Engine) RegisterDriver(ctx context.Context, caller auth.Identity, userID string, vehicleID *int64) (domain.DriverProfile, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.DriverProfile{}, err
	}
	if userID == "" {
		return domain.DriverProfile{}, fmt.Errorf("user id is required")
	}
	now := e.nowString()
	if err := e.Repo.UpsertUserRole(ctx, userID, domain.RoleDriver, now); err != nil {
		return domain.DriverProfile{}, err
	}
	return e.Repo.InsertDriverProfile(ctx, domain.DriverProfile{
		UserID:    userID,
		VehicleID: vehicleID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// RegisterVehicle adds a vehicle to the fleet; admin only.
func (e *Engine) RegisterVehicle(ctx context.Context, caller auth.Identity, plate string, capacityKg float64) (domain.Vehicle, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.Vehicle{}, err
	}
	if plate == "" {
		return domain.Vehicle{}, fmt.Errorf("plate number is required")
	}
	if capacityKg <= 0 {
		return domain.Vehicle{}, fmt.Errorf("invalid capacity %v", capacityKg)
	}
	return e.Repo.InsertVehicle(ctx, domain.Vehicle{
		PlateNumber: plate,
		CapacityKg:  capacityKg,
		Active:      true,
		CreatedAt:   e.nowString(),
	})
}
