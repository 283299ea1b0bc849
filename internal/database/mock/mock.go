// Package mock provides in-memory implementations of the database
// repository interfaces for tests.
package mock

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/school-reports/internal/database"
)

// MockReportWriter is a mock implementation of database.ReportWriter
type MockReportWriter struct {
	mu      sync.RWMutex
	reports map[string]*database.Report
	seq     map[string]int // insertion order, used to break created_at ties
	counter int

	// Error injection
	GetReportError      error
	ListReportsError    error
	ListAllReportsError error
	CreateReportError   error
	UpdateReportError   error
	DeleteReportError   error
}

// NewMockReportWriter creates a new mock report writer
func NewMockReportWriter() *MockReportWriter {
	return &MockReportWriter{
		reports: make(map[string]*database.Report),
		seq:     make(map[string]int),
	}
}

func cloneReport(r *database.Report) *database.Report {
	c := *r
	c.Images = slices.Clone(r.Images)
	c.CustomFieldValues = maps.Clone(r.CustomFieldValues)
	return &c
}

// AddReport adds a report to the mock store
func (m *MockReportWriter) AddReport(report database.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	m.reports[report.ID] = cloneReport(&report)
	m.seq[report.ID] = m.counter
}

// Count returns the number of stored reports
func (m *MockReportWriter) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

func (m *MockReportWriter) GetReport(ctx context.Context, ownerID, id string) (*database.Report, error) {
	if m.GetReportError != nil {
		return nil, m.GetReportError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok || r.OwnerID != ownerID {
		return nil, nil
	}
	return cloneReport(r), nil
}

func (m *MockReportWriter) ownedSorted(ownerID string) []database.Report {
	var out []database.Report
	for _, r := range m.reports {
		if r.OwnerID == ownerID {
			out = append(out, *cloneReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return m.seq[out[i].ID] > m.seq[out[j].ID]
	})
	return out
}

func (m *MockReportWriter) ListReports(ctx context.Context, ownerID string, page int) (*database.ReportPage, error) {
	if m.ListReportsError != nil {
		return nil, m.ListReportsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.ownedSorted(ownerID)
	from, to := database.PageRange(page)
	var slice []database.Report
	if from < len(all) {
		slice = all[from:min(to+1, len(all))]
	}
	return database.NewReportPage(slice, page, len(all)), nil
}

func (m *MockReportWriter) ListAllReports(ctx context.Context, ownerID string) ([]database.Report, error) {
	if m.ListAllReportsError != nil {
		return nil, m.ListAllReportsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.ownedSorted(ownerID)
	if out == nil {
		out = []database.Report{}
	}
	return out, nil
}

func (m *MockReportWriter) CreateReport(ctx context.Context, report *database.Report) error {
	if m.CreateReportError != nil {
		return m.CreateReportError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	if report.ID == "" {
		report.ID = fmt.Sprintf("report-%d", m.counter)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	report.UpdatedAt = report.CreatedAt
	m.reports[report.ID] = cloneReport(report)
	m.seq[report.ID] = m.counter
	return nil
}

func (m *MockReportWriter) UpdateReport(ctx context.Context, report *database.Report) error {
	if m.UpdateReportError != nil {
		return m.UpdateReportError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reports[report.ID]
	if !ok || existing.OwnerID != report.OwnerID {
		return fmt.Errorf("update report: %w", database.ErrNotFound)
	}
	report.CreatedAt = existing.CreatedAt
	report.UpdatedAt = time.Now()
	m.reports[report.ID] = cloneReport(report)
	return nil
}

func (m *MockReportWriter) DeleteReport(ctx context.Context, ownerID, id string) error {
	if m.DeleteReportError != nil {
		return m.DeleteReportError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok || r.OwnerID != ownerID {
		return fmt.Errorf("delete report: %w", database.ErrNotFound)
	}
	delete(m.reports, id)
	delete(m.seq, id)
	return nil
}

// MockTemplateWriter is a mock implementation of database.TemplateWriter
type MockTemplateWriter struct {
	mu        sync.RWMutex
	templates map[string]*database.TemplateSettings
	counter   int

	// Error injection
	GetTemplateError       error
	ListTemplatesError     error
	GetActiveTemplateError error
	CreateTemplateError    error
	UpdateTemplateError    error
	SetActiveTemplateError error
}

// NewMockTemplateWriter creates a new mock template writer
func NewMockTemplateWriter() *MockTemplateWriter {
	return &MockTemplateWriter{templates: make(map[string]*database.TemplateSettings)}
}

func cloneTemplate(t *database.TemplateSettings) *database.TemplateSettings {
	c := *t
	c.AdditionalLogos = slices.Clone(t.AdditionalLogos)
	c.CustomFields = slices.Clone(t.CustomFields)
	return &c
}

// AddTemplate adds a template to the mock store
func (m *MockTemplateWriter) AddTemplate(tmpl database.TemplateSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tmpl.ID] = cloneTemplate(&tmpl)
}

func (m *MockTemplateWriter) GetTemplate(ctx context.Context, ownerID, id string) (*database.TemplateSettings, error) {
	if m.GetTemplateError != nil {
		return nil, m.GetTemplateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok || t.OwnerID != ownerID {
		return nil, nil
	}
	return cloneTemplate(t), nil
}

func (m *MockTemplateWriter) ListTemplates(ctx context.Context, ownerID string) ([]database.TemplateSettings, error) {
	if m.ListTemplatesError != nil {
		return nil, m.ListTemplatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []database.TemplateSettings{}
	for _, t := range m.templates {
		if t.OwnerID == ownerID {
			out = append(out, *cloneTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

func (m *MockTemplateWriter) GetActiveTemplate(ctx context.Context, ownerID string) (*database.TemplateSettings, error) {
	if m.GetActiveTemplateError != nil {
		return nil, m.GetActiveTemplateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active *database.TemplateSettings
	for _, t := range m.templates {
		if t.OwnerID != ownerID || !t.IsActive {
			continue
		}
		if active == nil || t.UpdatedAt.After(active.UpdatedAt) {
			active = t
		}
	}
	if active == nil {
		return nil, nil
	}
	return cloneTemplate(active), nil
}

func (m *MockTemplateWriter) CreateTemplate(ctx context.Context, tmpl *database.TemplateSettings) error {
	if m.CreateTemplateError != nil {
		return m.CreateTemplateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	if tmpl.ID == "" {
		tmpl.ID = fmt.Sprintf("template-%d", m.counter)
	}
	now := time.Now()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	m.templates[tmpl.ID] = cloneTemplate(tmpl)
	return nil
}

func (m *MockTemplateWriter) UpdateTemplate(ctx context.Context, tmpl *database.TemplateSettings) error {
	if m.UpdateTemplateError != nil {
		return m.UpdateTemplateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.templates[tmpl.ID]
	if !ok || existing.OwnerID != tmpl.OwnerID {
		return fmt.Errorf("update template: %w", database.ErrNotFound)
	}
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.IsActive = existing.IsActive
	tmpl.UpdatedAt = time.Now()
	m.templates[tmpl.ID] = cloneTemplate(tmpl)
	return nil
}

func (m *MockTemplateWriter) SetActiveTemplate(ctx context.Context, ownerID, id string) error {
	if m.SetActiveTemplateError != nil {
		return m.SetActiveTemplateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.templates[id]
	if !ok || target.OwnerID != ownerID {
		return fmt.Errorf("set active template: %w", database.ErrNotFound)
	}
	now := time.Now()
	for _, t := range m.templates {
		if t.OwnerID == ownerID && t.IsActive {
			t.IsActive = false
			t.UpdatedAt = now
		}
	}
	target.IsActive = true
	target.UpdatedAt = now
	return nil
}

// MockUserStore is a mock implementation of database.UserStore
type MockUserStore struct {
	mu      sync.RWMutex
	users   map[string]*database.User
	counter int

	CreateUserError error
	GetUserError    error
}

// NewMockUserStore creates a new mock user store
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*database.User)}
}

// AddUser adds a user to the mock store
func (m *MockUserStore) AddUser(user database.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = &user
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *database.User) error {
	if m.CreateUserError != nil {
		return m.CreateUserError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: email %s already exists", user.Email)
		}
	}
	m.counter++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.counter)
	}
	user.CreatedAt = time.Now()
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MockUserStore) GetUser(ctx context.Context, id string) (*database.User, error) {
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

var (
	_ database.ReportWriter   = (*MockReportWriter)(nil)
	_ database.TemplateWriter = (*MockTemplateWriter)(nil)
	_ database.UserStore      = (*MockUserStore)(nil)
)
