package database

import (
	"context"
	"errors"
	"sync"
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	providerMu     sync.RWMutex
	reportWriter   func() ReportWriter
	templateWriter func() TemplateWriter
	userStore      func() UserStore
)

// RegisterReportWriter registers the ReportWriter constructor.
// This is called by the postgres package (or a test) to avoid import cycles.
func RegisterReportWriter(writer func() ReportWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	reportWriter = writer
}

// RegisterTemplateWriter registers the TemplateWriter constructor.
func RegisterTemplateWriter(writer func() TemplateWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	templateWriter = writer
}

// RegisterUserStore registers the UserStore constructor.
func RegisterUserStore(store func() UserStore) {
	providerMu.Lock()
	defer providerMu.Unlock()
	userStore = store
}

// GetReportWriter returns the registered ReportWriter.
func GetReportWriter(ctx context.Context) (ReportWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if reportWriter == nil {
		return nil, errNotInitialized
	}
	return reportWriter(), nil
}

// GetReportReader returns the registered ReportWriter as a reader.
func GetReportReader(ctx context.Context) (ReportReader, error) {
	return GetReportWriter(ctx)
}

// GetTemplateWriter returns the registered TemplateWriter.
func GetTemplateWriter(ctx context.Context) (TemplateWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if templateWriter == nil {
		return nil, errNotInitialized
	}
	return templateWriter(), nil
}

// GetTemplateReader returns the registered TemplateWriter as a reader.
func GetTemplateReader(ctx context.Context) (TemplateReader, error) {
	return GetTemplateWriter(ctx)
}

// GetUserStore returns the registered UserStore.
func GetUserStore(ctx context.Context) (UserStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if userStore == nil {
		return nil, errNotInitialized
	}
	return userStore(), nil
}

// ResetForTesting clears all registered constructors.
func ResetForTesting() {
	providerMu.Lock()
	defer providerMu.Unlock()
	reportWriter = nil
	templateWriter = nil
	userStore = nil
}
