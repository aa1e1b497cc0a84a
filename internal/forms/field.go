// Package forms implements template-driven participant forms: field
// definitions, per-type validation and rendering, reusable templates and the
// form engine that collects, validates and submits values.
package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// FieldType selects how a field is bound, validated and rendered
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeGrade    FieldType = "grade"
	TypeSelect   FieldType = "select"
	TypeFile     FieldType = "file"
	TypeEmail    FieldType = "email"
	TypeTel      FieldType = "tel"
	TypeURL      FieldType = "url"
)

// Option is one choice of a select field
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Rules holds the validation rules declared on a field. Each group is
// independent and every declared group must pass:
//   - range: Min and/or Max, inclusive, for number and grade fields
//   - pattern: Pattern with an optional Message, for text fields
//   - file: AcceptedTypes (dotted extensions) and/or MaxSizeMB, for file fields
type Rules struct {
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Pattern       string   `json:"pattern,omitempty"`
	Message       string   `json:"message,omitempty"`
	AcceptedTypes []string `json:"acceptedTypes,omitempty"`
	MaxSizeMB     float64  `json:"maxSizeMB,omitempty"`
}

// HasRange reports whether a numeric bound is declared
func (r Rules) HasRange() bool { return r.Min != nil || r.Max != nil }

// HasPattern reports whether a pattern is declared
func (r Rules) HasPattern() bool { return r.Pattern != "" }

// HasFileParams reports whether a file constraint is declared
func (r Rules) HasFileParams() bool { return len(r.AcceptedTypes) > 0 || r.MaxSizeMB > 0 }

// IsZero reports whether no rule is declared
func (r Rules) IsZero() bool {
	return !r.HasRange() && !r.HasPattern() && !r.HasFileParams() && r.Message == ""
}

func (r Rules) clone() Rules {
	c := r
	if r.Min != nil {
		v := *r.Min
		c.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		c.Max = &v
	}
	c.AcceptedTypes = slices.Clone(r.AcceptedTypes)
	return c
}

// FieldDefinition declares one piece of participant data collected at check-in
type FieldDefinition struct {
	ID           string    `json:"id"`
	Type         FieldType `json:"type"`
	Label        string    `json:"label"`
	Required     bool      `json:"required"`
	Placeholder  string    `json:"placeholder,omitempty"`
	DefaultValue string    `json:"defaultValue,omitempty"`
	HelperText   string    `json:"helperText,omitempty"`
	Options      []Option  `json:"options,omitempty"`
	Validation   Rules     `json:"validation,omitzero"`
	// ReadOnly fields are shown but never edited by the participant.
	ReadOnly bool `json:"readOnly,omitempty"`
	// Step places the field on a page of a multi-step form, lowest first.
	Step int `json:"step,omitempty"`
}

// InitialValue is the field's bound default, or unset when it has none
func (f FieldDefinition) InitialValue() Value {
	if f.DefaultValue == "" {
		return Value{}
	}
	return Bind(f, f.DefaultValue)
}

// HasOption reports whether value is one of the field's declared options
func (f FieldDefinition) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the field
func (f FieldDefinition) Clone() FieldDefinition {
	c := f
	c.Options = slices.Clone(f.Options)
	c.Validation = f.Validation.clone()
	return c
}

const bytesPerMB = 1024 * 1024

// legacyRules accepts the nested file parameters older templates carry
type legacyRules struct {
	Rules
	FileParams *struct {
		AcceptedTypes []string `json:"acceptedTypes"`
		MaxSizeMB     float64  `json:"maxSizeMB"`
	} `json:"fileParams,omitempty"`
}

// UnmarshalJSON decodes a field and folds the duplicated file constraints
// (top-level fileTypes/maxFileSize and validation.fileParams) into Validation.
// Duplicates that disagree are rejected.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	type plain FieldDefinition
	var wire struct {
		plain
		Validation  *legacyRules `json:"validation,omitempty"`
		FileTypes   []string     `json:"fileTypes,omitempty"`
		MaxFileSize int64        `json:"maxFileSize,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*f = FieldDefinition(wire.plain)
	if wire.Validation == nil {
		f.Validation = Rules{}
	} else {
		f.Validation = wire.Validation.Rules
		if fp := wire.Validation.FileParams; fp != nil {
			if err := mergeFileRule(&f.Validation, f.ID, fp.AcceptedTypes, fp.MaxSizeMB); err != nil {
				return err
			}
		}
	}

	var legacyMB float64
	if wire.MaxFileSize > 0 {
		legacyMB = float64(wire.MaxFileSize) / bytesPerMB
	}
	return mergeFileRule(&f.Validation, f.ID, wire.FileTypes, legacyMB)
}

func mergeFileRule(r *Rules, id string, types []string, maxMB float64) error {
	if len(types) > 0 {
		if len(r.AcceptedTypes) > 0 && !sameExtensions(r.AcceptedTypes, types) {
			return fmt.Errorf("%w: field %q declares conflicting accepted file types", ErrInvalidDefinition, id)
		}
		r.AcceptedTypes = slices.Clone(types)
	}
	if maxMB > 0 {
		if r.MaxSizeMB > 0 && math.Abs(r.MaxSizeMB-maxMB) > 1e-9 {
			return fmt.Errorf("%w: field %q declares conflicting maximum file sizes", ErrInvalidDefinition, id)
		}
		r.MaxSizeMB = maxMB
	}
	return nil
}

func sameExtensions(a, b []string) bool {
	norm := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, ext := range in {
			out = append(out, normalizeExt(ext))
		}
		slices.Sort(out)
		return slices.Compact(out)
	}
	return slices.Equal(norm(a), norm(b))
}

// normalizeExt lower-cases an extension and strips its leading dot
func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
