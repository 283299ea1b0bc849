package database

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var customFieldTypes = []string{FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeTextarea}

// NormalizeCustomFields returns a copy of fields sorted by Order (stable) and
// renumbered 0..n-1. Fields without an id get a new uuid. Unknown types,
// blank English labels, repeated ids and repeated labels are rejected.
func NormalizeCustomFields(fields []CustomField) ([]CustomField, error) {
	out := make([]CustomField, len(fields))
	copy(out, fields)

	ids := make(map[string]bool, len(out))
	labels := make(map[string]bool, len(out))
	for i := range out {
		if !slices.Contains(customFieldTypes, out[i].Type) {
			return nil, ValidationErrors{
				fmt.Sprintf("custom_fields[%d].type", i): "must be one of: text number date textarea",
			}
		}
		label := strings.ToLower(strings.TrimSpace(out[i].Name.En))
		if label == "" {
			return nil, ValidationErrors{
				fmt.Sprintf("custom_fields[%d].name", i): "is required",
			}
		}
		if labels[label] {
			return nil, ValidationErrors{
				fmt.Sprintf("custom_fields[%d].name", i): "must be unique",
			}
		}
		labels[label] = true

		if out[i].ID == "" {
			out[i].ID = uuid.New().String()
		}
		if ids[out[i].ID] {
			return nil, ValidationErrors{
				fmt.Sprintf("custom_fields[%d].id", i): "must be unique",
			}
		}
		ids[out[i].ID] = true
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i
	}
	return out, nil
}
