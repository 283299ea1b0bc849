package database

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a field name to a human readable problem.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "reportdate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, fl.Field().String())
			return err == nil
		})
		mustRegister(v, "imageref", func(fl validator.FieldLevel) bool {
			return IsImageRef(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// IsImageRef reports whether s is an http(s) URL or an embedded data:image URL.
func IsImageRef(s string) bool {
	if strings.HasPrefix(s, "data:image/") {
		return strings.Contains(s, ",")
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateReport normalizes r in place and checks it before it is persisted.
// Returns ValidationErrors when one or more fields are invalid.
func ValidateReport(r *Report) error {
	NormalizeReport(r)
	return structErrors(getValidator().Struct(r))
}

// ValidateTemplate normalizes t in place and checks it before it is persisted.
func ValidateTemplate(t *TemplateSettings) error {
	if err := NormalizeTemplate(t); err != nil {
		return err
	}
	return structErrors(getValidator().Struct(t))
}

// NormalizeReport trims text fields and applies the language default.
func NormalizeReport(r *Report) {
	for _, f := range []*string{
		&r.Title, &r.Date, &r.Time, &r.Venue, &r.Organizer,
		&r.TeacherName, &r.TeacherDesignation,
	} {
		*f = strings.TrimSpace(*f)
	}
	r.Language = NormalizeLanguage(r.Language)
	if r.Images == nil {
		r.Images = []string{}
	}
}

// NormalizeLanguage maps an empty tag to English. Other values are returned
// lower-cased so validation can reject unsupported ones.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return LanguageEnglish
	}
	return lang
}

// NormalizeTemplate fills derived fields and renumbers custom fields.
func NormalizeTemplate(t *TemplateSettings) error {
	t.SchoolName = strings.TrimSpace(t.SchoolName)
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		t.Name = t.SchoolName
	}
	if t.Language != "" {
		t.Language = NormalizeLanguage(t.Language)
	}
	if t.AdditionalLogos == nil {
		t.AdditionalLogos = []string{}
	}
	fields, err := NormalizeCustomFields(t.CustomFields)
	if err != nil {
		return err
	}
	t.CustomFields = fields
	return nil
}

func structErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		out[snakeCase(fe.Field())] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank":
		return "is required"
	case "reportdate":
		return "must be a date in YYYY-MM-DD format"
	case "imageref":
		return "must be an http(s) URL or an image data URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hexcolor":
		return "must be a hex color such as #1a1f2c"
	default:
		return "is invalid"
	}
}

// snakeCase turns a Go field name such as "TeacherName" or "Images[2]"
// into its JSON form "teacher_name" / "images[2]".
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
