package server

// Request bodies for the HTTP API. Responses reuse the domain types directly;
// they already carry the wire-stable json tags.

type DevLoginRequest struct {
	UserID string `json:"user_id" example:"citizen-42"`
	Role   string `json:"role,omitempty" enum:"citizen,driver,admin"`
}

type DevLoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CreateReportRequest struct {
	ZoneID      *int64  `json:"zone_id,omitempty"`
	Category    string  `json:"category" enum:"uncollected,illegal_dumping,overflowing_bin,other"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type UpdateReportRequest struct {
	Category    string `json:"category" enum:"uncollected,illegal_dumping,overflowing_bin,other"`
	Description string `json:"description"`
}

type CloseReportRequest struct {
	Status string `json:"status,omitempty" enum:"resolved,rejected"`
}

type DispatchRequest struct {
	Date   string `json:"date,omitempty" example:"2025-06-01"`
	WardID *int64 `json:"ward_id,omitempty"`
}

type StopUpdateRequest struct {
	Status string  `json:"status" enum:"pending,done,skipped"`
	Notes  *string `json:"notes,omitempty"`
}

type RoadConditionRequest struct {
	RunID       *int64   `json:"run_id,omitempty"`
	ZoneID      *int64   `json:"zone_id,omitempty"`
	Severity    string   `json:"severity,omitempty" enum:"low,medium,high"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type CreateWardRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type CreateZoneRequest struct {
	WardID    int64    `json:"ward_id"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	CenterLat *float64 `json:"center_lat,omitempty"`
	CenterLng *float64 `json:"center_lng,omitempty"`
}

type CreateCollectionPointRequest struct {
	ZoneID    int64   `json:"zone_id"`
	Label     string  `json:"label"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RegisterVehicleRequest struct {
	PlateNumber string  `json:"plate_number"`
	CapacityKg  float64 `json:"capacity_kg"`
}

type RegisterDriverRequest struct {
	UserID    string `json:"user_id"`
	VehicleID *int64 `json:"vehicle_id,omitempty"`
}

type SetRoleRequest struct {
	Role string `json:"role" enum:"citizen,driver,admin"`
}
