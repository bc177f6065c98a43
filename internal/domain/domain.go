package domain

// Roles recognized by the platform, lowest to highest rank.
const (
	RoleCitizen = "citizen"
	RoleDriver  = "driver"
	RoleAdmin   = "admin"
)

type Ward struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Zone struct {
	ID        int64    `json:"id"`
	WardID    int64    `json:"ward_id"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	CenterLat *float64 `json:"center_lat,omitempty"`
	CenterLng *float64 `json:"center_lng,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
}

type CollectionPoint struct {
	ID        int64   `json:"id"`
	ZoneID    int64   `json:"zone_id"`
	Label     string  `json:"label"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type UserRole struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role" enum:"citizen,driver,admin"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Vehicle struct {
	ID          int64   `json:"id"`
	PlateNumber string  `json:"plate_number"`
	CapacityKg  float64 `json:"capacity_kg"`
	Active      bool    `json:"active"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type DriverProfile struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	VehicleID *int64 `json:"vehicle_id,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type CitizenReport struct {
	ID             int64   `json:"id"`
	ReporterUserID string  `json:"reporter_user_id"`
	ZoneID         *int64  `json:"zone_id,omitempty"`
	Category       string  `json:"category" enum:"uncollected,illegal_dumping,overflowing_bin,other"`
	Description    string  `json:"description"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Status         string  `json:"status" enum:"open,in_review,resolved,rejected"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

type RoadConditionReport struct {
	ID             int64    `json:"id"`
	ReporterUserID string   `json:"reporter_user_id"`
	ZoneID         *int64   `json:"zone_id,omitempty"`
	Severity       string   `json:"severity" enum:"low,medium,high"`
	Description    string   `json:"description"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

type RouteRun struct {
	ID                int64   `json:"id"`
	RunDate           string  `json:"run_date"`
	WardID            *int64  `json:"ward_id,omitempty"`
	DriverUserID      *string `json:"driver_user_id,omitempty"`
	VehicleID         *int64  `json:"vehicle_id,omitempty"`
	Status            string  `json:"status" enum:"planned,in_progress,completed,blocked"`
	PlannedDistanceKm float64 `json:"planned_distance_km"`
	StartedAt         *string `json:"started_at,omitempty" format:"date-time"`
	CompletedAt       *string `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type RouteStop struct {
	ID             int64   `json:"id"`
	RouteRunID     int64   `json:"route_run_id"`
	ZoneID         *int64  `json:"zone_id,omitempty"`
	SourceReportID *int64  `json:"source_report_id,omitempty"`
	Sequence       int     `json:"sequence"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Action         string  `json:"action"`
	Status         string  `json:"status" enum:"pending,done,skipped"`
	Notes          *string `json:"notes,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

// RunWithStops is the driver-facing view of an assigned run.
type RunWithStops struct {
	Run   RouteRun    `json:"run"`
	Stops []RouteStop `json:"stops"`
}

type DriverEvent struct {
	ID           int64   `json:"id"`
	RouteRunID   *int64  `json:"route_run_id,omitempty"`
	DriverUserID string  `json:"driver_user_id"`
	EventType    string  `json:"event_type"`
	PayloadJSON  *string `json:"payload_json,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type WasteForecast struct {
	ID                int64   `json:"id"`
	ZoneID            int64   `json:"zone_id"`
	ForecastDate      string  `json:"forecast_date"`
	PredictedVolumeKg float64 `json:"predicted_volume_kg"`
	Confidence        float64 `json:"confidence"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

// ZoneDemand is a scored forecast row returned by a forecast refresh,
// ordered by descending score.
type ZoneDemand struct {
	ZoneID            int64   `json:"zone_id"`
	ZoneName          string  `json:"zone_name"`
	Score             float64 `json:"score"`
	PredictedVolumeKg float64 `json:"predicted_volume_kg"`
	Confidence        float64 `json:"confidence"`
}

type KpiSnapshot struct {
	Date                  string  `json:"date"`
	PlannedRuns           int     `json:"planned_runs"`
	CompletedRuns         int     `json:"completed_runs"`
	OpenReports           int     `json:"open_reports"`
	ResolvedReports       int     `json:"resolved_reports"`
	AverageResponseHours  float64 `json:"average_response_hours"`
	AvgRunDurationMinutes float64 `json:"avg_run_duration_minutes"`
	TotalDistanceKm       float64 `json:"total_distance_km"`
}
