package forms

import (
	"strings"
	"time"
)

// fieldKind is the per-type behaviour shared by the binder, the validator and
// the renderer. Adding a field type means adding one entry to kinds.
type fieldKind struct {
	// bind turns raw control text into a typed value
	bind func(f FieldDefinition, raw string) Value
	// check runs after the required/empty check, only on non-empty values,
	// and returns a message when the value is rejected
	check func(f FieldDefinition, v Value) string
	// control names the renderer template
	control string
	// inputType is the HTML input type for "input" and "number" controls
	inputType string
}

var kinds = map[FieldType]fieldKind{
	TypeText:     {bind: bindString, check: checkPattern, control: "input", inputType: "text"},
	TypeTextarea: {bind: bindString, control: "textarea"},
	TypeNumber:   {bind: bindNumber, check: checkRange, control: "number", inputType: "number"},
	TypeGrade:    {bind: bindNumber, check: checkRange, control: "number", inputType: "number"},
	TypeDate:     {bind: bindDate, control: "input", inputType: "date"},
	TypeSelect:   {bind: bindOption, control: "select"},
	TypeFile:     {bind: bindString, check: checkFile, control: "file"},
	TypeEmail:    {bind: bindString, check: checkEmail, control: "input", inputType: "email"},
	TypeTel:      {bind: bindString, control: "input", inputType: "tel"},
	TypeURL:      {bind: bindString, control: "input", inputType: "url"},
}

// unknownKind handles types this build does not know: a plain text box that
// is only subject to the required check.
var unknownKind = fieldKind{bind: bindString, control: "input", inputType: "text"}

func kindFor(t FieldType) fieldKind {
	if k, ok := kinds[t]; ok {
		return k
	}
	return unknownKind
}

// KnownType reports whether t is a supported field type
func KnownType(t FieldType) bool {
	_, ok := kinds[t]
	return ok
}

// Bind converts the raw text of a control into the field's typed value.
// Unparseable numbers and dates stay text so the validator can reject them.
func Bind(f FieldDefinition, raw string) Value {
	return kindFor(f.Type).bind(f, raw)
}

func bindString(_ FieldDefinition, raw string) Value {
	return StringValue(raw)
}

func bindOption(_ FieldDefinition, raw string) Value {
	return OptionValue(raw)
}

func bindNumber(_ FieldDefinition, raw string) Value {
	n, ok := parseFinite(raw)
	if !ok {
		return StringValue(raw)
	}
	return NumberValue(n)
}

func bindDate(_ FieldDefinition, raw string) Value {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return StringValue(raw)
	}
	return DateValue(t)
}
