package curbsidesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Curbside HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Report is the API citizen report model.
type Report struct {
	ID             int64   `json:"id"`
	ReporterUserID string  `json:"reporter_user_id"`
	ZoneID         *int64  `json:"zone_id,omitempty"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// Run is the API route run model.
type Run struct {
	ID                int64   `json:"id"`
	RunDate           string  `json:"run_date"`
	DriverUserID      *string `json:"driver_user_id,omitempty"`
	Status            string  `json:"status"`
	PlannedDistanceKm float64 `json:"planned_distance_km"`
	StartedAt         *string `json:"started_at,omitempty"`
	CompletedAt       *string `json:"completed_at,omitempty"`
}

// Stop is one stop on a run.
type Stop struct {
	ID             int64   `json:"id"`
	RouteRunID     int64   `json:"route_run_id"`
	SourceReportID *int64  `json:"source_report_id,omitempty"`
	Sequence       int     `json:"sequence"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Status         string  `json:"status"`
	Notes          *string `json:"notes,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty"`
}

// RunWithStops pairs a run with its ordered stops.
type RunWithStops struct {
	Run   Run    `json:"run"`
	Stops []Stop `json:"stops"`
}

// StopUpdateResult reports the state after a stop update.
type StopUpdateResult struct {
	Stop         Stop `json:"stop"`
	Run          Run  `json:"run"`
	RunCompleted bool `json:"run_completed"`
}

// DispatchResult summarizes a dispatch pass.
type DispatchResult struct {
	Date           string `json:"date"`
	Runs           []Run  `json:"runs"`
	ClaimedReports int    `json:"claimed_reports"`
	SkippedReports int    `json:"skipped_reports"`
}

// ZoneDemand is a scored forecast row.
type ZoneDemand struct {
	ZoneID            int64   `json:"zone_id"`
	ZoneName          string  `json:"zone_name"`
	Score             float64 `json:"score"`
	PredictedVolumeKg float64 `json:"predicted_volume_kg"`
	Confidence        float64 `json:"confidence"`
}

// KpiSnapshot is the daily operational summary.
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

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// DevLogin mints a development token and stores it on the client.
func (c *Client) DevLogin(ctx context.Context, userID, role string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "v1/auth/dev/login", map[string]any{
		"user_id": userID,
		"role":    role,
	}, &resp)
	if err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Token, nil
}

// CreateReport files a citizen report.
func (c *Client) CreateReport(ctx context.Context, zoneID *int64, category, description string, lat, lng float64) (Report, error) {
	body := map[string]any{
		"category":    category,
		"description": description,
		"latitude":    lat,
		"longitude":   lng,
	}
	if zoneID != nil {
		body["zone_id"] = *zoneID
	}
	var resp Report
	err := c.do(ctx, http.MethodPost, "v1/reports", body, &resp)
	return resp, err
}

// MyReports lists the caller's reports.
func (c *Client) MyReports(ctx context.Context) ([]Report, error) {
	var resp []Report
	err := c.do(ctx, http.MethodGet, "v1/reports/mine", nil, &resp)
	return resp, err
}

// Dispatch plans runs from open reports; admin token required.
func (c *Client) Dispatch(ctx context.Context, date string, wardID *int64) (DispatchResult, error) {
	body := map[string]any{}
	if date != "" {
		body["date"] = date
	}
	if wardID != nil {
		body["ward_id"] = *wardID
	}
	var resp DispatchResult
	err := c.do(ctx, http.MethodPost, "v1/admin/dispatch", body, &resp)
	return resp, err
}

// AssignedRun returns the caller's current run; driver token required.
func (c *Client) AssignedRun(ctx context.Context, date string) (RunWithStops, error) {
	endpoint := "v1/driver/run"
	if date != "" {
		endpoint += "?date=" + date
	}
	var resp RunWithStops
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UpdateStop records progress on a stop; driver token required.
func (c *Client) UpdateStop(ctx context.Context, runID, stopID int64, status string, notes *string) (StopUpdateResult, error) {
	body := map[string]any{"status": status}
	if notes != nil {
		body["notes"] = *notes
	}
	var resp StopUpdateResult
	endpoint := fmt.Sprintf("v1/driver/runs/%d/stops/%d", runID, stopID)
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// RefreshForecasts recomputes zone demand for a date; admin token required.
func (c *Client) RefreshForecasts(ctx context.Context, date string) ([]ZoneDemand, error) {
	endpoint := "v1/admin/forecasts/refresh"
	if date != "" {
		endpoint += "?date=" + date
	}
	var resp []ZoneDemand
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Kpi computes the daily KPI snapshot; admin token required.
func (c *Client) Kpi(ctx context.Context, date string) (KpiSnapshot, error) {
	endpoint := "v1/admin/kpi"
	if date != "" {
		endpoint += "?date=" + date
	}
	var resp KpiSnapshot
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
