package engine

import (
	"context"
	"fmt"

	"curbside/internal/domain"
	"curbside/internal/engine/auth"
)

var validCategories = map[string]bool{
	"uncollected":     true,
	"illegal_dumping": true,
	"overflowing_bin": true,
	"other":           true,
}

// editableStatuses are the report states a citizen may still change. Once a
// report is claimed by dispatch (in_review) or closed out (resolved), it
// belongs to the operational record.
var editableStatuses = map[string]bool{
	"open":     true,
	"rejected": true,
}

// ReportInput is what a citizen files.
type ReportInput struct {
	ZoneID      *int64
	Category    string
	Description string
	Latitude    float64
	Longitude   float64
}

func validateReportInput(in ReportInput) error {
	if !validCategories[in.Category] {
		return fmt.Errorf("invalid report category %q", in.Category)
	}
	if in.Description == "" {
		return fmt.Errorf("description is required")
	}
	if in.Latitude < -90 || in.Latitude > 90 {
		return fmt.Errorf("invalid latitude %v", in.Latitude)
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return fmt.Errorf("invalid longitude %v", in.Longitude)
	}
	return nil
}

// CreateReport files a citizen report; it opens in the open state and becomes
// dispatch input.
func (e *Engine) CreateReport(ctx context.Context, caller auth.Identity, in ReportInput) (domain.CitizenReport, error) {
	if _, err := auth.RequireUser(caller); err != nil {
		return domain.CitizenReport{}, err
	}
	if err := validateReportInput(in); err != nil {
		return domain.CitizenReport{}, err
	}
	if in.ZoneID != nil {
		if _, err := e.Repo.GetZone(ctx, *in.ZoneID); err != nil {
			return domain.CitizenReport{}, fmt.Errorf("invalid zone %d: %w", *in.ZoneID, err)
		}
	}
	now := e.nowString()
	return e.Repo.InsertReport(ctx, domain.CitizenReport{
		ReporterUserID: caller.UserID,
		ZoneID:         in.ZoneID,
		Category:       in.Category,
		Description:    in.Description,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Status:         "open",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// ListMyReports returns the caller's reports, newest first.
func (e *Engine) ListMyReports(ctx context.Context, caller auth.Identity) ([]domain.CitizenReport, error) {
	if _, err := auth.RequireUser(caller); err != nil {
		return nil, err
	}
	return e.Repo.ListReportsByUser(ctx, caller.UserID)
}

// GetReport returns one report; visible to its reporter and to admins.
func (e *Engine) GetReport(ctx context.Context, caller auth.Identity, id int64) (domain.CitizenReport, error) {
	if _, err := auth.RequireUser(caller); err != nil {
		return domain.CitizenReport{}, err
	}
	rep, err := e.Repo.GetReport(ctx, id)
	if err != nil {
		return domain.CitizenReport{}, err
	}
	if rep.ReporterUserID != caller.UserID && caller.Role != domain.RoleAdmin {
		return domain.CitizenReport{}, auth.ForbiddenError{Reason: "report belongs to another user"}
	}
	return rep, nil
}

// UpdateMyReport lets a citizen amend their own report while it is still
// editable.
func (e *Engine) UpdateMyReport(ctx context.Context, caller auth.Identity, id int64, category, description string) (domain.CitizenReport, error) {
	rep, err := e.GetReport(ctx, caller, id)
	if err != nil {
		return domain.CitizenReport{}, err
	}
	if rep.ReporterUserID != caller.UserID {
		return domain.CitizenReport{}, auth.ForbiddenError{Reason: "report belongs to another user"}
	}
	if !editableStatuses[rep.Status] {
		return domain.CitizenReport{}, fmt.Errorf("invalid update: report is %s", rep.Status)
	}
	if !validCategories[category] {
		return domain.CitizenReport{}, fmt.Errorf("invalid report category %q", category)
	}
	if description == "" {
		return domain.CitizenReport{}, fmt.Errorf("description is required")
	}
	if err := e.Repo.UpdateReportContent(ctx, id, category, description, e.nowString()); err != nil {
		return domain.CitizenReport{}, err
	}
	return e.Repo.GetReport(ctx, id)
}

// DeleteMyReport withdraws a citizen's own report while it is still editable.
func (e *Engine) DeleteMyReport(ctx context.Context, caller auth.Identity, id int64) error {
	rep, err := e.GetReport(ctx, caller, id)
	if err != nil {
		return err
	}
	if rep.ReporterUserID != caller.UserID {
		return auth.ForbiddenError{Reason: "report belongs to another user"}
	}
	if !editableStatuses[rep.Status] {
		return fmt.Errorf("invalid delete: report is %s", rep.Status)
	}
	return e.Repo.DeleteReport(ctx, id)
}

// ListOpenReports returns reports still in the pipeline; admin only.
func (e *Engine) ListOpenReports(ctx context.Context, caller auth.Identity) ([]domain.CitizenReport, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return e.Repo.ListOpenReports(ctx)
}

// ListAllReports returns every report; admin only.
func (e *Engine) ListAllReports(ctx context.Context, caller auth.Identity) ([]domain.CitizenReport, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return e.Repo.ListAllReports(ctx)
}

var adminClosableStatuses = map[string]bool{"resolved": true, "rejected": true}

// CloseReport resolves or rejects a report; admin only. An empty status
// resolves.
func (e *Engine) CloseReport(ctx context.Context, caller auth.Identity, id int64, status string) (domain.CitizenReport, error) {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return domain.CitizenReport{}, err
	}
	if status == "" {
		status = "resolved"
	}
	if !adminClosableStatuses[status] {
		return domain.CitizenReport{}, fmt.Errorf("invalid close status %q", status)
	}
	if err := e.Repo.UpdateReportStatus(ctx, id, status, e.nowString()); err != nil {
		return domain.CitizenReport{}, err
	}
	return e.Repo.GetReport(ctx, id)
}

// DeleteReport removes a report regardless of state; admin only.
func (e *Engine) DeleteReport(ctx context.Context, caller auth.Identity, id int64) error {
	if _, err := auth.RequireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}
	return e.Repo.DeleteReport(ctx, id)
}
