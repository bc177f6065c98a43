package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"curbside/internal/domain"
	"curbside/internal/engine"
	"curbside/internal/engine/auth"
	"curbside/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Curbside API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	roles := auth.Service{DB: cfg.Engine.DB}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, roles))
	hcfg := huma.DefaultConfig("Curbside API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerDevAuth(group, roles, cfg.Auth)
	registerReports(group, cfg.Engine)
	registerAdminReports(group, cfg.Engine)
	registerDispatch(group, cfg.Engine)
	registerRoster(group, cfg.Engine)
	registerDriver(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ue auth.UnauthorizedError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDevAuth(api huma.API, roles auth.Service, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if !authCfg.AllowDevLogin {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "dev login is disabled", nil)
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		role := input.Body.Role
		if role == "" {
			role = domain.RoleCitizen
		}
		if !auth.HasMinimumRole(role, domain.RoleCitizen) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid role", nil)
		}
		now := time.Now().UTC()
		if err := roles.SetUserRole(ctx, input.Body.UserID, role); err != nil {
			return nil, handleError(err)
		}
		token, err := signToken(authCfg.JWTSecret, input.Body.UserID, role, now)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token, UserID: input.Body.UserID, Role: role}}, nil
	})
}

func registerReports(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-report",
		Method:        http.MethodPost,
		Path:          "/reports",
		Summary:       "File a citizen report",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateReportRequest `json:"body"`
	}) (*struct {
		Body domain.CitizenReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		rep, err := e.CreateReport(ctx, caller, engine.ReportInput{
			ZoneID:      input.Body.ZoneID,
			Category:    input.Body.Category,
			Description: input.Body.Description,
			Latitude:    input.Body.Latitude,
			Longitude:   input.Body.Longitude,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CitizenReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-my-reports",
		Method:      http.MethodGet,
		Path:        "/reports/mine",
		Summary:     "List the caller's reports",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.CitizenReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListMyReports(ctx, caller)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CitizenReport `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{report_id}",
		Summary:     "Get one report",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReportID int64 `path:"report_id"`
	}) (*struct {
		Body domain.CitizenReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.GetReport(ctx, caller, input.ReportID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CitizenReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-report",
		Method:      http.MethodPatch,
		Path:        "/reports/{report_id}",
		Summary:     "Amend the caller's report while still open",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReportID int64               `path:"report_id"`
		Body     UpdateReportRequest `json:"body"`
	}) (*struct {
		Body domain.CitizenReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		rep, err := e.UpdateMyReport(ctx, caller, input.ReportID, input.Body.Category, input.Body.Description)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CitizenReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-report",
		Method:        http.MethodDelete,
		Path:          "/reports/{report_id}",
		Summary:       "Withdraw the caller's report while still open",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReportID int64 `path:"report_id"`
	}) (*struct{}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMyReport(ctx, caller, input.ReportID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAdminReports(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-list-reports",
		Method:      http.MethodGet,
		Path:        "/admin/reports",
		Summary:     "List reports, optionally only the open pipeline",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Open bool `query:"open" doc:"Only open and in_review reports"`
	}) (*struct {
		Body []domain.CitizenReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var items []domain.CitizenReport
		var err error
		if input.Open {
			items, err = e.ListOpenReports(ctx, caller)
		} else {
			items, err = e.ListAllReports(ctx, caller)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CitizenReport `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-close-report",
		Method:      http.MethodPost,
		Path:        "/admin/reports/{report_id}/close",
		Summary:     "Resolve or reject a report",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReportID int64              `path:"report_id"`
		Body     CloseReportRequest `json:"body"`
	}) (*struct {
		Body domain.CitizenReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.CloseReport(ctx, caller, input.ReportID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CitizenReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "admin-delete-report",
		Method:        http.MethodDelete,
		Path:          "/admin/reports/{report_id}",
		Summary:       "Remove a report",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReportID int64 `path:"report_id"`
	}) (*struct{}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteReport(ctx, caller, input.ReportID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDispatch(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dispatch-runs",
		Method:      http.MethodPost,
		Path:        "/admin/dispatch",
		Summary:     "Plan collection runs from open reports",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body DispatchRequest `json:"body"`
	}) (*struct {
		Body engine.DispatchResult `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
			return nil, handleError(err)
		}
		res, err := e.GenerateDailyRuns(ctx, engine.DispatchOptions{Date: input.Body.Date, WardID: input.Body.WardID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DispatchResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-forecasts",
		Method:      http.MethodPost,
		Path:        "/admin/forecasts/refresh",
		Summary:     "Recompute zone demand forecasts for a date",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" example:"2025-06-01"`
	}) (*struct {
		Body []domain.ZoneDemand `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		demands, err := e.ZoneDemandDashboard(ctx, caller, input.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ZoneDemand `json:"body"`
		}{Body: demands}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-forecasts",
		Method:      http.MethodGet,
		Path:        "/admin/forecasts",
		Summary:     "List persisted forecasts for a date",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" example:"2025-06-01"`
	}) (*struct {
		Body []repo.ForecastRow `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
			return nil, handleError(err)
		}
		rows, err := e.ListForecasts(ctx, input.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []repo.ForecastRow `json:"body"`
		}{Body: rows}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "kpi-snapshot",
		Method:      http.MethodGet,
		Path:        "/admin/kpi",
		Summary:     "Compute and persist the KPI snapshot for a date",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" example:"2025-06-01"`
	}) (*struct {
		Body domain.KpiSnapshot `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		snap, err := e.BuildKpiSnapshot(ctx, caller, input.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.KpiSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/admin/events",
		Summary:     "Tail the driver event log",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		RunID int64 `query:"run_id" doc:"Only events for this run"`
		Limit int   `query:"limit" doc:"Max entries, newest first"`
	}) (*struct {
		Body []domain.DriverEvent `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var runID *int64
		if input.RunID > 0 {
			runID = &input.RunID
		}
		items, err := e.ListDriverEvents(ctx, caller, runID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DriverEvent `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/admin/runs/{run_id}",
		Summary:     "Inspect a run with its stops",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID int64 `path:"run_id"`
	}) (*struct {
		Body domain.RunWithStops `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rws, err := e.GetRunWithStops(ctx, caller, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RunWithStops `json:"body"`
		}{Body: rws}, nil
	})
}

func registerRoster(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-ward",
		Method:        http.MethodPost,
		Path:          "/admin/wards",
		Summary:       "Register a ward",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateWardRequest `json:"body"`
	}) (*struct {
		Body domain.Ward `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.CreateWard(ctx, caller, input.Body.Name, input.Body.Code)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Ward `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-wards",
		Method:      http.MethodGet,
		Path:        "/wards",
		Summary:     "List wards",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Ward `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListWards(ctx, caller)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Ward `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-zone",
		Method:        http.MethodPost,
		Path:          "/admin/zones",
		Summary:       "Register a zone",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateZoneRequest `json:"body"`
	}) (*struct {
		Body domain.Zone `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		z, err := e.CreateZone(ctx, caller, input.Body.WardID, input.Body.Name, input.Body.Code, input.Body.CenterLat, input.Body.CenterLng)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Zone `json:"body"`
		}{Body: z}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-zones",
		Method:      http.MethodGet,
		Path:        "/zones",
		Summary:     "List zones",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Zone `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListZones(ctx, caller)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Zone `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-collection-point",
		Method:        http.MethodPost,
		Path:          "/admin/collection-points",
		Summary:       "Register a fixed collection point",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateCollectionPointRequest `json:"body"`
	}) (*struct {
		Body domain.CollectionPoint `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateCollectionPoint(ctx, caller, domain.CollectionPoint{
			ZoneID:    input.Body.ZoneID,
			Label:     input.Body.Label,
			Address:   input.Body.Address,
			Latitude:  input.Body.Latitude,
			Longitude: input.Body.Longitude,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CollectionPoint `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-vehicle",
		Method:        http.MethodPost,
		Path:          "/admin/vehicles",
		Summary:       "Add a vehicle to the fleet",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body RegisterVehicleRequest `json:"body"`
	}) (*struct {
		Body domain.Vehicle `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.RegisterVehicle(ctx, caller, input.Body.PlateNumber, input.Body.CapacityKg)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Vehicle `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-driver",
		Method:        http.MethodPost,
		Path:          "/admin/drivers",
		Summary:       "Grant the driver role and create a profile",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body RegisterDriverRequest `json:"body"`
	}) (*struct {
		Body domain.DriverProfile `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.RegisterDriver(ctx, caller, input.Body.UserID, input.Body.VehicleID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DriverProfile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-user-role",
		Method:      http.MethodPut,
		Path:        "/admin/users/{user_id}/role",
		Summary:     "Assign a role to a user",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		UserID string         `path:"user_id"`
		Body   SetRoleRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetUserRole(ctx, caller, input.UserID, input.Body.Role); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"user_id": input.UserID, "role": input.Body.Role}}, nil
	})
}

func registerDriver(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-assigned-run",
		Method:      http.MethodGet,
		Path:        "/driver/run",
		Summary:     "The caller's current run with ordered stops",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" example:"2025-06-01"`
	}) (*struct {
		Body domain.RunWithStops `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rws, err := e.GetAssignedRun(ctx, caller, input.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RunWithStops `json:"body"`
		}{Body: rws}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stop",
		Method:      http.MethodPost,
		Path:        "/driver/runs/{run_id}/stops/{stop_id}",
		Summary:     "Record progress on a stop",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID  int64             `path:"run_id"`
		StopID int64             `path:"stop_id"`
		Body   StopUpdateRequest `json:"body"`
	}) (*struct {
		Body engine.StopUpdateResult `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		res, err := e.SubmitStopUpdate(ctx, caller, input.RunID, input.StopID, input.Body.Status, input.Body.Notes)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.StopUpdateResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "report-road-condition",
		Method:        http.MethodPost,
		Path:          "/driver/road-conditions",
		Summary:       "File a road condition issue",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body RoadConditionRequest `json:"body"`
	}) (*struct {
		Body domain.RoadConditionReport `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.SubmitRoadConditionIssue(ctx, caller, engine.RoadConditionInput{
			RunID:       input.Body.RunID,
			ZoneID:      input.Body.ZoneID,
			Severity:    input.Body.Severity,
			Description: input.Body.Description,
			Latitude:    input.Body.Latitude,
			Longitude:   input.Body.Longitude,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RoadConditionReport `json:"body"`
		}{Body: rep}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	openPaths := map[string]bool{
		path.Join("/", basePath, "health"):         true,
		path.Join("/", basePath, "auth/dev/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if openPaths[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Curbside API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}
