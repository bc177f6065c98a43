package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"curbside/internal/db"
	"curbside/internal/domain"
	"curbside/internal/engine"
	"curbside/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, nil)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: "test-secret", AllowDevLogin: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func (s *testServer) login(t *testing.T, userID, role string) string {
	t.Helper()
	res, data := s.doJSON(t, http.MethodPost, "/v1/auth/dev/login", DevLoginRequest{UserID: userID, Role: role}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login for %s: status %d body %s", userID, res.StatusCode, data)
	}
	var out DevLoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.Token
}

func decodeInto(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t)
	res, data := ts.doJSON(t, http.MethodGet, "/v1/health", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d body %s", res.StatusCode, data)
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ts := newTestServer(t)
	res, _ := ts.doJSON(t, http.MethodGet, "/v1/reports/mine", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	res, _ = ts.doJSON(t, http.MethodGet, "/v1/reports/mine", nil, "not-a-token")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestRoleEnforcement(t *testing.T) {
	ts := newTestServer(t)
	citizen := ts.login(t, "citizen-1", "citizen")
	res, data := ts.doJSON(t, http.MethodGet, "/v1/admin/reports", nil, citizen)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for citizen on admin route, got %d body %s", res.StatusCode, data)
	}
}

func TestReportDispatchDriveFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin-1", "admin")
	citizen := ts.login(t, "citizen-1", "citizen")

	res, data := ts.doJSON(t, http.MethodPost, "/v1/admin/wards", CreateWardRequest{Name: "North Ward", Code: "NW"}, admin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create ward: %d %s", res.StatusCode, data)
	}
	var ward domain.Ward
	decodeInto(t, data, &ward)

	res, data = ts.doJSON(t, http.MethodPost, "/v1/admin/zones", CreateZoneRequest{WardID: ward.ID, Name: "Zone A", Code: "NW-A"}, admin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create zone: %d %s", res.StatusCode, data)
	}
	var zone domain.Zone
	decodeInto(t, data, &zone)

	res, data = ts.doJSON(t, http.MethodPost, "/v1/admin/drivers", RegisterDriverRequest{UserID: "driver-1"}, admin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register driver: %d %s", res.StatusCode, data)
	}
	driver := ts.login(t, "driver-1", "driver")

	// citizen files two reports
	for i := 0; i < 2; i++ {
		res, data = ts.doJSON(t, http.MethodPost, "/v1/reports", CreateReportRequest{
			ZoneID:      &zone.ID,
			Category:    "uncollected",
			Description: "bags on the curb",
			Latitude:    35.68 + float64(i)*0.01,
			Longitude:   139.76,
		}, citizen)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create report: %d %s", res.StatusCode, data)
		}
	}

	res, data = ts.doJSON(t, http.MethodPost, "/v1/admin/dispatch", DispatchRequest{}, admin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dispatch: %d %s", res.StatusCode, data)
	}
	var dispatch engine.DispatchResult
	decodeInto(t, data, &dispatch)
	if len(dispatch.Runs) != 1 || dispatch.ClaimedReports != 2 {
		t.Fatalf("dispatch result = %+v, want 1 run from 2 reports", dispatch)
	}
	runID := dispatch.Runs[0].ID

	res, data = ts.doJSON(t, http.MethodGet, "/v1/driver/run", nil, driver)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get assigned run: %d %s", res.StatusCode, data)
	}
	var assigned domain.RunWithStops
	decodeInto(t, data, &assigned)
	if assigned.Run.ID != runID || len(assigned.Stops) != 2 {
		t.Fatalf("assigned = run %d with %d stops, want run %d with 2", assigned.Run.ID, len(assigned.Stops), runID)
	}

	// an invalid status is rejected before any write
	res, data = ts.doJSON(t, http.MethodPost,
		fmt.Sprintf("/v1/driver/runs/%d/stops/%d", runID, assigned.Stops[0].ID),
		map[string]string{"status": "finished"}, driver)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d %s", res.StatusCode, data)
	}

	for i, stop := range assigned.Stops {
		res, data = ts.doJSON(t, http.MethodPost,
			fmt.Sprintf("/v1/driver/runs/%d/stops/%d", runID, stop.ID),
			StopUpdateRequest{Status: "done"}, driver)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("stop update %d: %d %s", i, res.StatusCode, data)
		}
	}
	var last engine.StopUpdateResult
	decodeInto(t, data, &last)
	if !last.RunCompleted || last.Run.Status != "completed" {
		t.Fatalf("run after final stop = %+v, want completed", last.Run)
	}

	// another driver's token cannot touch this run
	intruder := ts.login(t, "driver-2", "driver")
	res, data = ts.doJSON(t, http.MethodPost,
		fmt.Sprintf("/v1/driver/runs/%d/stops/%d", runID, assigned.Stops[0].ID),
		StopUpdateRequest{Status: "done"}, intruder)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for other driver, got %d %s", res.StatusCode, data)
	}

	res, data = ts.doJSON(t, http.MethodGet, "/v1/admin/kpi", nil, admin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("kpi: %d %s", res.StatusCode, data)
	}
	var snap domain.KpiSnapshot
	decodeInto(t, data, &snap)
	if snap.CompletedRuns != 1 {
		t.Fatalf("kpi completed runs = %d, want 1", snap.CompletedRuns)
	}
}

func TestReportOwnershipOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin-1", "admin")
	alice := ts.login(t, "alice", "citizen")
	bob := ts.login(t, "bob", "citizen")

	res, data := ts.doJSON(t, http.MethodPost, "/v1/admin/wards", CreateWardRequest{Name: "W", Code: "W1"}, admin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create ward: %d %s", res.StatusCode, data)
	}

	res, data = ts.doJSON(t, http.MethodPost, "/v1/reports", CreateReportRequest{
		Category: "illegal_dumping", Description: "tires dumped", Latitude: 35.6, Longitude: 139.7,
	}, alice)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create report: %d %s", res.StatusCode, data)
	}
	var rep domain.CitizenReport
	decodeInto(t, data, &rep)

	res, _ = ts.doJSON(t, http.MethodGet, fmt.Sprintf("/v1/reports/%d", rep.ID), nil, bob)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for other citizen, got %d", res.StatusCode)
	}
	res, _ = ts.doJSON(t, http.MethodGet, "/v1/reports/999999", nil, alice)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing report, got %d", res.StatusCode)
	}

	res, data = ts.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/admin/reports/%d/close", rep.ID),
		CloseReportRequest{Status: "resolved"}, admin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("close report: %d %s", res.StatusCode, data)
	}
	var closed domain.CitizenReport
	decodeInto(t, data, &closed)
	if closed.Status != "resolved" {
		t.Fatalf("status = %s, want resolved", closed.Status)
	}
}
