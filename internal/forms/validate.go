package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidDefinition is wrapped by every field or template definition error
var ErrInvalidDefinition = errors.New("invalid field definition")

const (
	msgInvalidEmail  = "Please enter a valid email address"
	maxSummaryLabels = 3
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError is a validation failure attributed to one field
type FieldError struct {
	FieldID string
	Label   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Validate checks a single value against its field definition and returns
// nil when the value is accepted. It has no side effects.
func Validate(f FieldDefinition, v Value) *FieldError {
	if v.IsEmpty() {
		if f.Required {
			return fieldError(f, fmt.Sprintf("%s is required", f.Label))
		}
		return nil
	}

	check := kindFor(f.Type).check
	if check == nil {
		return nil
	}
	if msg := check(f, v); msg != "" {
		return fieldError(f, msg)
	}
	return nil
}

func fieldError(f FieldDefinition, msg string) *FieldError {
	return &FieldError{FieldID: f.ID, Label: f.Label, Message: msg}
}

// ValidateAll validates every field against values, in field order
func ValidateAll(fields []FieldDefinition, values map[string]Value) []*FieldError {
	var problems []*FieldError
	for _, f := range fields {
		if fe := Validate(f, values[f.ID]); fe != nil {
			problems = append(problems, fe)
		}
	}
	return problems
}

// ValidationError reports every failing field of a submission
type ValidationError struct {
	Problems []*FieldError
}

// Error summarizes the first few offending field labels
func (e *ValidationError) Error() string {
	labels := make([]string, 0, maxSummaryLabels)
	for i, p := range e.Problems {
		if i == maxSummaryLabels {
			break
		}
		labels = append(labels, p.Label)
	}
	msg := "Please fix the following fields: " + strings.Join(labels, ", ")
	if extra := len(e.Problems) - len(labels); extra > 0 {
		msg += fmt.Sprintf(" and %d more", extra)
	}
	return msg
}

// Fields returns the failures keyed by field id
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		out[p.FieldID] = p.Message
	}
	return out
}

func checkEmail(_ FieldDefinition, v Value) string {
	if !emailPattern.MatchString(strings.TrimSpace(v.Text())) {
		return msgInvalidEmail
	}
	return ""
}

func checkRange(f FieldDefinition, v Value) string {
	n, ok := v.Float()
	if !ok {
		return fmt.Sprintf("%s must be a number", f.Label)
	}
	if lo := f.Validation.Min; lo != nil && n < *lo {
		return fmt.Sprintf("%s must be at least %s", f.Label, formatBound(*lo))
	}
	if hi := f.Validation.Max; hi != nil && n > *hi {
		return fmt.Sprintf("%s must be at most %s", f.Label, formatBound(*hi))
	}
	return ""
}

func checkPattern(f FieldDefinition, v Value) string {
	rule := f.Validation
	if !rule.HasPattern() {
		return ""
	}
	re, err := regexp.Compile(rule.Pattern)
	if err == nil && re.MatchString(v.Text()) {
		return ""
	}
	if rule.Message != "" {
		return rule.Message
	}
	return fmt.Sprintf("%s format is invalid", f.Label)
}

func checkFile(f FieldDefinition, v Value) string {
	rule := f.Validation
	name := v.Text()

	if len(rule.AcceptedTypes) > 0 {
		ext := ""
		if i := strings.LastIndex(name, "."); i >= 0 {
			ext = normalizeExt(name[i+1:])
		}
		allowed := false
		for _, t := range rule.AcceptedTypes {
			if ext != "" && normalizeExt(t) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return "File type must be one of: " + strings.Join(rule.AcceptedTypes, ", ")
		}
	}

	if fh := v.File(); fh != nil && rule.MaxSizeMB > 0 && float64(fh.Size) > rule.MaxSizeMB*bytesPerMB {
		return fmt.Sprintf("File must be %s MB or smaller", formatBound(rule.MaxSizeMB))
	}
	return ""
}

func formatBound(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
