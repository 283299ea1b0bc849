package database

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// copySuffix is appended to the title of a duplicated report.
const copySuffix = " (Copy)"

// DuplicateReport returns a new report with every field of src copied,
// except identity, owner and timestamps. The title gets a " (Copy)" suffix.
func DuplicateReport(src *Report, ownerID string, now time.Time) *Report {
	dup := *src
	dup.ID = uuid.New().String()
	dup.OwnerID = ownerID
	dup.Title = src.Title + copySuffix
	dup.Images = slices.Clone(src.Images)
	if dup.Images == nil {
		dup.Images = []string{}
	}
	dup.CustomFieldValues = maps.Clone(src.CustomFieldValues)
	dup.CreatedAt = now
	dup.UpdatedAt = now
	return &dup
}

// PageRange returns the inclusive row offsets for a zero-based page number.
func PageRange(page int) (from, to int) {
	if page < 0 {
		page = 0
	}
	from = page * ReportsPerPage
	return from, from + ReportsPerPage - 1
}

// NewReportPage builds a ReportPage for page given the owner's total count.
func NewReportPage(reports []Report, page, total int) *ReportPage {
	if reports == nil {
		reports = []Report{}
	}
	p := &ReportPage{Reports: reports, TotalCount: total}
	_, to := PageRange(page)
	if to+1 < total {
		next := max(page, 0) + 1
		p.NextPage = &next
	}
	return p
}
