package routing

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curbside/internal/geo"
)

var testPoints = []geo.Point{
	{ID: 1, Lat: 35.0, Lng: 139.0},
	{ID: 2, Lat: 35.1, Lng: 139.1},
}

func quietClient(baseURL string) *OSRMClient {
	c := NewOSRMClient(baseURL, time.Second)
	c.Logger = log.New(io.Discard, "", 0)
	return c
}

func TestTripDistanceParsesMeters(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte(`{"routes":[{"distance":12500}]}`))
	}))
	defer srv.Close()

	km, ok := quietClient(srv.URL).TripDistanceKm(context.Background(), testPoints)
	if !ok {
		t.Fatalf("expected distance, got unavailable")
	}
	if km != 12.5 {
		t.Fatalf("distance %f, want 12.5", km)
	}
	want := "/route/v1/driving/139.000000,35.000000;139.100000,35.100000?overview=false"
	if gotPath != want {
		t.Fatalf("path %q, want %q", gotPath, want)
	}
}

func TestTripDistanceUnavailableCases(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"routes":`))
		},
		"no routes": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"routes":[]}`))
		},
		"zero distance": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"routes":[{"distance":0}]}`))
		},
	}
	for name, handler := range cases {
		srv := httptest.NewServer(handler)
		if _, ok := quietClient(srv.URL).TripDistanceKm(context.Background(), testPoints); ok {
			t.Errorf("%s: expected unavailable", name)
		}
		srv.Close()
	}
}

func TestTripDistanceSkipsShortOrUnconfigured(t *testing.T) {
	if _, ok := quietClient("").TripDistanceKm(context.Background(), testPoints); ok {
		t.Fatalf("empty base URL should be unavailable")
	}
	if _, ok := quietClient("http://localhost:1").TripDistanceKm(context.Background(), testPoints[:1]); ok {
		t.Fatalf("single point should be unavailable without a network call")
	}
}

func TestTripDistanceConnectionRefused(t *testing.T) {
	// Closed server: transport error must degrade, not fail.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	if _, ok := quietClient(url).TripDistanceKm(context.Background(), testPoints); ok {
		t.Fatalf("expected unavailable on transport error")
	}
}
