package engine

import (
	"database/sql"
	"math"
	"time"

	"curbside/internal/events"
	"curbside/internal/repo"
	"curbside/internal/routing"
)

// Engine executes dispatch operations. Every mutation runs in a single
// transaction against the store; the driver event log is written in the same
// transaction as the state change it records.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Trips  routing.TripDistancer
	Now    func() time.Time
}

func New(db *sql.DB, trips routing.TripDistancer) *Engine {
	now := time.Now
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db, Now: now},
		Trips:  trips,
		Now:    now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Today returns the engine's current date in UTC, the granularity runs and
// forecasts are keyed on.
func (e *Engine) Today() string {
	return e.now().UTC().Format("2006-01-02")
}

// round2 rounds to two decimals, the precision stored for distances and
// KPI averages.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
