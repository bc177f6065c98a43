package app

import (
	"context"
	"database/sql"

	"curbside/internal/config"
	"curbside/internal/db"
	"curbside/internal/engine"
	"curbside/internal/engine/auth"
	"curbside/internal/migrate"
	"curbside/internal/routing"
)

// Runtime bundles the open store and loaded config for one invocation. Both
// the CLI and the server boot through here so the workspace, migrations and
// routing client are wired the same way everywhere.
type Runtime struct {
	DB     *sql.DB
	Config *config.Config
}

// Open prepares the workspace, opens the store, applies pending migrations
// and loads curbside.yml (defaults when absent).
func Open(workspace string) (*Runtime, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Runtime{DB: conn, Config: cfg}, nil
}

func (r *Runtime) Close() error {
	return r.DB.Close()
}

// Engine builds the dispatch engine with the configured routing client.
func (r *Runtime) Engine() *engine.Engine {
	var trips routing.TripDistancer
	if r.Config.Routing.OSRMBaseURL != "" {
		trips = routing.NewOSRMClient(r.Config.Routing.OSRMBaseURL, r.Config.RoutingTimeout())
	}
	return engine.New(r.DB, trips)
}

// Identity resolves the CLI caller: the stored role for the user id, seeded
// as citizen on first sight, with an optional local override.
func (r *Runtime) Identity(ctx context.Context, userID, roleOverride string) (auth.Identity, error) {
	svc := auth.Service{DB: r.DB}
	role, err := svc.EnsureUserRole(ctx, userID)
	if err != nil {
		return auth.Identity{}, err
	}
	if roleOverride != "" {
		role = roleOverride
	}
	return auth.Identity{UserID: userID, Role: role}, nil
}
