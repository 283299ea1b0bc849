package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by write operations that target a missing row.
// Read operations return nil, nil instead.
var ErrNotFound = errors.New("not found")

// ReportReader provides owner-scoped read access to reports.
type ReportReader interface {
	// GetReport returns nil if the report does not exist or belongs to another owner
	GetReport(ctx context.Context, ownerID, id string) (*Report, error)
	// ListReports returns one page ordered by creation time, newest first
	ListReports(ctx context.Context, ownerID string, page int) (*ReportPage, error)
	// ListAllReports returns every report of the owner, newest first
	ListAllReports(ctx context.Context, ownerID string) ([]Report, error)
}

// ReportWriter provides write access to reports.
type ReportWriter interface {
	ReportReader

	// CreateReport stores a new report and fills its ID and timestamps
	CreateReport(ctx context.Context, report *Report) error
	// UpdateReport overwrites all fields of an existing report
	UpdateReport(ctx context.Context, report *Report) error
	// DeleteReport permanently removes a report
	DeleteReport(ctx context.Context, ownerID, id string) error
}

// TemplateReader provides owner-scoped read access to template settings.
type TemplateReader interface {
	GetTemplate(ctx context.Context, ownerID, id string) (*TemplateSettings, error)
	ListTemplates(ctx context.Context, ownerID string) ([]TemplateSettings, error)
	// GetActiveTemplate returns the owner's active template, or nil when none is active.
	// If several rows are flagged active the most recently updated one wins.
	GetActiveTemplate(ctx context.Context, ownerID string) (*TemplateSettings, error)
}

// TemplateWriter provides write access to template settings.
type TemplateWriter interface {
	TemplateReader

	CreateTemplate(ctx context.Context, tmpl *TemplateSettings) error
	UpdateTemplate(ctx context.Context, tmpl *TemplateSettings) error
	// SetActiveTemplate flags one template active and clears the flag on the owner's others
	SetActiveTemplate(ctx context.Context, ownerID, id string) error
}

// UserStore provides access to login accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}
