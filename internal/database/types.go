package database

import (
	"time"
)

// Supported report languages.
const (
	LanguageEnglish = "en"
	LanguageMalay   = "my"
)

// ReportsPerPage is the page size of the report list.
const ReportsPerPage = 9

// User is a login account. Reports and templates are owned by a user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Report is one authored event write-up.
type Report struct {
	ID                 string
	OwnerID            string
	Title              string `validate:"notblank"`
	Date               string `validate:"notblank,reportdate"`
	Time               string `validate:"notblank"`
	Venue              string `validate:"notblank"`
	Organizer          string `validate:"notblank"`
	Attendance         string `validate:"notblank"`
	Impact             string `validate:"notblank"`
	Summary            string `validate:"notblank"`
	TeacherName        string
	TeacherDesignation string
	Images             []string `validate:"dive,imageref"`
	Language           string   `validate:"oneof=en my"`
	CustomFieldValues  map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReportPage is one page of an owner's report list.
type ReportPage struct {
	Reports    []Report
	TotalCount int
	NextPage   *int // nil on the last page
}

// Custom field input types.
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeTextarea = "textarea"
)

// LocalizedText holds an English and a Malay variant of a label.
type LocalizedText struct {
	En string `json:"en"`
	My string `json:"my"`
}

// For returns the variant for lang, falling back to English when the
// Malay text is empty.
func (t LocalizedText) For(lang string) string {
	if lang == LanguageMalay && t.My != "" {
		return t.My
	}
	return t.En
}

// CustomField is a user-defined extra field attached to a template.
type CustomField struct {
	ID           string        `json:"id"`
	Name         LocalizedText `json:"name"`
	Type         string        `json:"type"`
	Required     bool          `json:"required"`
	DefaultValue string        `json:"default_value,omitempty"`
	Order        int           `json:"order"`
}

// TemplateSettings is a branding profile applied when a report is rendered.
type TemplateSettings struct {
	ID              string
	OwnerID         string
	Name            string
	SchoolName      string   `validate:"notblank"`
	SchoolLogo      string   `validate:"omitempty,imageref"`
	AdditionalLogos []string `validate:"dive,imageref"`
	PrimaryColor    string   `validate:"omitempty,hexcolor"`
	SecondaryColor  string   `validate:"omitempty,hexcolor"`
	HeaderText      string
	FooterText      string
	Language        string `validate:"omitempty,oneof=en my"`
	CustomFields    []CustomField
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FirstAdditionalLogo returns the only additional logo the document header shows.
func (t *TemplateSettings) FirstAdditionalLogo() string {
	if t == nil || len(t.AdditionalLogos) == 0 {
		return ""
	}
	return t.AdditionalLogos[0]
}
