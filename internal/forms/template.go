package forms

import (
	"fmt"
	"regexp"
	"strings"
)

// Category groups templates by the vertical they serve
type Category string

const (
	CategoryAcademic   Category = "academic"
	CategoryCorporate  Category = "corporate"
	CategoryNetworking Category = "networking"
	CategoryOther      Category = "other"
)

// ParseCategory maps free text to a Category, defaulting to other
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryAcademic, CategoryCorporate, CategoryNetworking:
		return c
	default:
		return CategoryOther
	}
}

// FeatureType names an optional capability a template switches on
type FeatureType string

const (
	FeatureFileUpload    FeatureType = "file_upload"
	FeatureGradeTracking FeatureType = "grade_tracking"
	FeatureAttendance    FeatureType = "attendance"
	FeatureSubmissions   FeatureType = "submissions"
)

// Feature is a toggle with free-form configuration
type Feature struct {
	Type    FeatureType    `json:"type"`
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config,omitempty"`
}

// Template is a reusable, ordered set of fields plus event defaults
type Template struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Category      Category          `json:"category"`
	Fields        []FieldDefinition `json:"fields"`
	Features      []Feature         `json:"features,omitempty"`
	MaxAttendees  int               `json:"max_attendees"`
	DurationHours float64           `json:"duration_hours"`
	System        bool              `json:"system"`
}

// FeatureEnabled reports whether the template switches on feature t
func (t Template) FeatureEnabled(ft FeatureType) bool {
	for _, f := range t.Features {
		if f.Type == ft {
			return f.Enabled
		}
	}
	return false
}

// Snapshot returns a deep copy of the fields, for embedding in an event.
// Later edits to the template do not reach the copy.
func (t Template) Snapshot() []FieldDefinition {
	return CloneFields(t.Fields)
}

// Validate checks the template metadata and its fields
func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalidDefinition)
	}
	if t.MaxAttendees < 0 {
		return fmt.Errorf("%w: max attendees cannot be negative", ErrInvalidDefinition)
	}
	if t.DurationHours < 0 {
		return fmt.Errorf("%w: duration cannot be negative", ErrInvalidDefinition)
	}
	return ValidateFields(t.Fields)
}

// ValidateFields checks a field list is usable as a form: at least one field,
// unique ids, known types and consistent per-type constraints.
func ValidateFields(fields []FieldDefinition) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidDefinition)
	}

	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("%w: field %d has no id", ErrInvalidDefinition, i+1)
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate field id %q", ErrInvalidDefinition, f.ID)
		}
		seen[f.ID] = true

		if err := validateField(f); err != nil {
			return err
		}
	}
	return nil
}

func validateField(f FieldDefinition) error {
	if !KnownType(f.Type) {
		return fmt.Errorf("%w: field %q has unsupported type %q", ErrInvalidDefinition, f.ID, f.Type)
	}
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("%w: field %q has no label", ErrInvalidDefinition, f.ID)
	}
	if f.Step < 0 {
		return fmt.Errorf("%w: field %q has a negative step", ErrInvalidDefinition, f.ID)
	}
	if f.Required && f.ReadOnly && strings.TrimSpace(f.DefaultValue) == "" {
		return fmt.Errorf("%w: read-only field %q is required but has no default value", ErrInvalidDefinition, f.ID)
	}

	r := f.Validation
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%w: field %q has min greater than max", ErrInvalidDefinition, f.ID)
	}
	if r.HasPattern() {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("%w: field %q has an invalid pattern: %v", ErrInvalidDefinition, f.ID, err)
		}
	}
	if r.MaxSizeMB < 0 {
		return fmt.Errorf("%w: field %q has a negative maximum file size", ErrInvalidDefinition, f.ID)
	}

	switch f.Type {
	case TypeSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("%w: select field %q needs at least one option", ErrInvalidDefinition, f.ID)
		}
		values := make(map[string]bool, len(f.Options))
		for _, opt := range f.Options {
			if values[opt.Value] {
				return fmt.Errorf("%w: select field %q repeats option %q", ErrInvalidDefinition, f.ID, opt.Value)
			}
			values[opt.Value] = true
		}
	case TypeFile:
		for _, ext := range r.AcceptedTypes {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return fmt.Errorf("%w: field %q file type %q must be a dotted extension such as .pdf", ErrInvalidDefinition, f.ID, ext)
			}
		}
	}
	return nil
}

// CloneFields deep-copies a field list
func CloneFields(fields []FieldDefinition) []FieldDefinition {
	if fields == nil {
		return nil
	}
	out := make([]FieldDefinition, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// DefaultFields is the conventional minimum: a required full name and email
func DefaultFields() []FieldDefinition {
	return []FieldDefinition{
		{ID: "name", Type: TypeText, Label: "Full Name", Required: true, Placeholder: "Enter your full name"},
		{ID: "email", Type: TypeEmail, Label: "Email Address", Required: true, Placeholder: "you@example.com"},
	}
}
