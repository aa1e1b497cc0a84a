package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of date values
const DateLayout = "2006-01-02"

// ValueKind tags the variant held by a Value
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindString
	KindNumber
	KindDate
	KindOption
	KindFile
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindOption:
		return "option"
	case KindFile:
		return "file"
	default:
		return "none"
	}
}

// FileHandle describes an uploaded file. Ref points at wherever the bytes
// were stored; the form engine never reads the content itself.
type FileHandle struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	Ref         string `json:"ref,omitempty"`
}

// Value is the typed value of one field. The zero Value is unset.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	date time.Time
	file *FileHandle
}

func StringValue(s string) Value    { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value   { return Value{kind: KindNumber, num: n} }
func OptionValue(s string) Value    { return Value{kind: KindOption, str: s} }
func DateValue(t time.Time) Value   { return Value{kind: KindDate, date: t} }
func FileValue(fh FileHandle) Value { return Value{kind: KindFile, file: &fh} }

// Kind returns the variant tag
func (v Value) Kind() ValueKind { return v.kind }

// IsEmpty reports whether the value counts as missing: unset, blank text,
// no option chosen or no file attached.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindString, KindOption:
		return strings.TrimSpace(v.str) == ""
	case KindFile:
		return v.file == nil || v.file.Name == ""
	case KindNumber, KindDate:
		return false
	default:
		return true
	}
}

// Text renders the value the way it appears in a form control
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindOption:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(DateLayout)
	case KindFile:
		if v.file != nil {
			return v.file.Name
		}
	}
	return ""
}

// Float returns the numeric reading of the value. Text is parsed. NaN and
// infinities are not numbers here.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, finite(v.num)
	case KindString, KindOption:
		return parseFinite(v.str)
	}
	return 0, false
}

func parseFinite(raw string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(n) {
		return 0, false
	}
	return n, true
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// Date returns the date held by the value
func (v Value) Date() (time.Time, bool) {
	if v.kind == KindDate {
		return v.date, true
	}
	return time.Time{}, false
}

// File returns the attached file, or nil
func (v Value) File() *FileHandle {
	if v.kind != KindFile || v.file == nil {
		return nil
	}
	fh := *v.file
	return &fh
}

// Equal reports whether two values hold the same variant and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFile:
		a, b := v.File(), o.File()
		return (a == nil && b == nil) || (a != nil && b != nil && *a == *b)
	case KindDate:
		return v.date.Equal(o.date)
	case KindNumber:
		return v.num == o.num
	default:
		return v.str == o.str
	}
}

// MarshalJSON writes unset values as null, numbers as JSON numbers, dates as
// YYYY-MM-DD strings and files as {name,size,content_type,ref} objects.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString, KindOption:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindDate:
		return json.Marshal(v.date.Format(DateLayout))
	case KindFile:
		return json.Marshal(v.file)
	default:
		return []byte("null"), nil
	}
}

// DecodeValue reads a JSON value submitted for field f into the field's
// typed representation.
func DecodeValue(f FieldDefinition, raw json.RawMessage) (Value, error) {
	if len(raw) == 0 {
		return Value{}, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Value{}, fmt.Errorf("field %q: %w", f.ID, err)
	}

	switch x := decoded.(type) {
	case nil:
		return Value{}, nil
	case string:
		return Bind(f, x), nil
	case float64:
		if f.Type == TypeNumber || f.Type == TypeGrade {
			return NumberValue(x), nil
		}
		return Bind(f, strconv.FormatFloat(x, 'f', -1, 64)), nil
	case bool:
		return Bind(f, strconv.FormatBool(x)), nil
	case map[string]any:
		if f.Type != TypeFile {
			return Value{}, fmt.Errorf("field %q: objects are only accepted for file fields", f.ID)
		}
		var fh FileHandle
		if err := json.Unmarshal(raw, &fh); err != nil {
			return Value{}, fmt.Errorf("field %q: %w", f.ID, err)
		}
		return FileValue(fh), nil
	default:
		return Value{}, fmt.Errorf("field %q: unsupported value %s", f.ID, string(raw))
	}
}

// Data is the submitted participant data keyed by field id
type Data map[string]Value

// EmailOf returns the value of the first email field in fields
func EmailOf(fields []FieldDefinition, data Data) string {
	for _, f := range fields {
		if f.Type == TypeEmail {
			return data[f.ID].Text()
		}
	}
	return ""
}

// DecodeData decodes a raw submission map against fields. Keys that match no
// field are dropped; fields missing from raw are present and unset.
func DecodeData(fields []FieldDefinition, raw map[string]json.RawMessage) (Data, error) {
	data := make(Data, len(fields))
	for _, f := range fields {
		v, err := DecodeValue(f, raw[f.ID])
		if err != nil {
			return nil, err
		}
		data[f.ID] = v
	}
	return data, nil
}
