// Package locale maps a report language tag to the labels printed in the
// report document.
package locale

import (
	_ "embed"
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Supported tags.
const (
	English = "en"
	Malay   = "my"
)

// Labels is the full set of field headings for one language.
type Labels struct {
	Title                string `yaml:"title"`
	Date                 string `yaml:"date"`
	Time                 string `yaml:"time"`
	Venue                string `yaml:"venue"`
	Organizer            string `yaml:"organizer"`
	Attendance           string `yaml:"attendance"`
	Impact               string `yaml:"impact"`
	Summary              string `yaml:"summary"`
	TeacherName          string `yaml:"teacher_name"`
	TeacherDesignation   string `yaml:"teacher_designation"`
	EventPhotos          string `yaml:"event_photos"`
	SignatureName        string `yaml:"signature_name"`
	SignatureDesignation string `yaml:"signature_designation"`
}

//go:embed labels.yaml
var labelsYAML []byte

var labelSets map[string]Labels

func init() {
	sets, err := parseLabels(labelsYAML)
	if err != nil {
		panic(fmt.Sprintf("locale: %v", err))
	}
	labelSets = sets
}

// parseLabels decodes the label file and checks that both languages define
// every key.
func parseLabels(data []byte) (map[string]Labels, error) {
	var sets map[string]Labels
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	for _, tag := range []string{English, Malay} {
		l, ok := sets[tag]
		if !ok {
			return nil, fmt.Errorf("missing label set %q", tag)
		}
		if missing := l.missing(); len(missing) > 0 {
			return nil, fmt.Errorf("label set %q is missing %s", tag, strings.Join(missing, ", "))
		}
	}
	return sets, nil
}

func (l Labels) missing() []string {
	var out []string
	v := reflect.ValueOf(l)
	t := v.Type()
	for i := range t.NumField() {
		if v.Field(i).String() == "" {
			out = append(out, t.Field(i).Tag.Get("yaml"))
		}
	}
	return out
}

// Normalize maps a language tag to one of the supported tags.
// "my", "ms" and their regional variants resolve to Malay, everything else
// (including an empty or malformed tag) to English.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return English
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return English
	}
	base, _ := parsed.Base()
	switch base.String() {
	case "ms", "my":
		return Malay
	default:
		return English
	}
}

// Resolve returns the label set for tag. It never fails.
func Resolve(tag string) Labels {
	return labelSets[Normalize(tag)]
}
