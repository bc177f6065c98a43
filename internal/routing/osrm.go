package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"curbside/internal/geo"
)

// TripDistancer estimates the total road distance of an ordered stop
// sequence. The second return value is false when no estimate is available;
// callers fall back to a geometric estimate and never treat this as an error.
type TripDistancer interface {
	TripDistanceKm(ctx context.Context, points []geo.Point) (float64, bool)
}

// OSRMClient queries an OSRM-compatible routing server.
type OSRMClient struct {
	BaseURL string
	Client  *http.Client
	Logger  *log.Logger
}

// NewOSRMClient builds a client with a bounded request timeout. An empty base
// URL yields a client that always reports unavailable.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OSRMClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *OSRMClient) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

type osrmResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// TripDistanceKm calls GET {base}/route/v1/driving/{lng,lat;...}?overview=false
// and reads routes[0].distance (meters). Transport errors, non-2xx responses
// and malformed bodies all degrade to unavailable.
func (c *OSRMClient) TripDistanceKm(ctx context.Context, points []geo.Point) (float64, bool) {
	if c.BaseURL == "" || len(points) < 2 {
		return 0, false
	}

	coords := make([]string, 0, len(points))
	for _, p := range points {
		coords = append(coords, fmt.Sprintf("%f,%f", p.Lng, p.Lat))
	}
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=false", c.BaseURL, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger().Printf("osrm: trip distance lookup failed, falling back to estimate: %v", err)
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger().Printf("osrm: trip distance lookup returned status %d, falling back to estimate", resp.StatusCode)
		return 0, false
	}

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger().Printf("osrm: malformed response, falling back to estimate: %v", err)
		return 0, false
	}
	if len(payload.Routes) == 0 || payload.Routes[0].Distance == 0 {
		return 0, false
	}
	return payload.Routes[0].Distance / 1000, true
}

// Static is a deterministic TripDistancer for tests.
type Static struct {
	DistanceKm float64
	OK         bool
	Calls      int
}

func (s *Static) TripDistanceKm(ctx context.Context, points []geo.Point) (float64, bool) {
	s.Calls++
	return s.DistanceKm, s.OK
}
