package forms

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
)

// controlData is what the control templates see
type controlData struct {
	Field     FieldDefinition
	Control   string
	InputType string
	Value     string
	Error     string
	Accept    string
	FileHelp  string
	Min       string
	Max       string
	Known     bool
}

const controlTemplates = `
{{define "field"}}<div class="field{{if .Error}} field-error{{end}}{{if not .Known}} field-unsupported{{end}}" data-field="{{.Field.ID}}">
<label for="field-{{.Field.ID}}">{{.Field.Label}}{{if .Field.Required}} <span class="required">*</span>{{end}}</label>
{{if eq .Control "textarea"}}{{template "textarea" .}}{{else if eq .Control "select"}}{{template "select" .}}{{else if eq .Control "file"}}{{template "file" .}}{{else if eq .Control "number"}}{{template "number" .}}{{else}}{{template "input" .}}{{end}}
{{with .Field.HelperText}}<p class="helper">{{.}}</p>{{end}}
{{with .Error}}<p class="error" role="alert">{{.}}</p>{{end}}
</div>{{end}}

{{define "input"}}<input type="{{.InputType}}" id="field-{{.Field.ID}}" name="{{.Field.ID}}" value="{{.Value}}"{{with .Field.Placeholder}} placeholder="{{.}}"{{end}}{{if .Field.Required}} required{{end}}{{if .Field.ReadOnly}} disabled{{end}}>{{end}}

{{define "number"}}<input type="number" step="any" id="field-{{.Field.ID}}" name="{{.Field.ID}}" value="{{.Value}}"{{with .Min}} min="{{.}}"{{end}}{{with .Max}} max="{{.}}"{{end}}{{with .Field.Placeholder}} placeholder="{{.}}"{{end}}{{if .Field.Required}} required{{end}}{{if .Field.ReadOnly}} disabled{{end}}>{{end}}

{{define "textarea"}}<textarea id="field-{{.Field.ID}}" name="{{.Field.ID}}" rows="4"{{with .Field.Placeholder}} placeholder="{{.}}"{{end}}{{if .Field.Required}} required{{end}}{{if .Field.ReadOnly}} disabled{{end}}>{{.Value}}</textarea>{{end}}

{{define "select"}}<select id="field-{{.Field.ID}}" name="{{.Field.ID}}"{{if .Field.Required}} required{{end}}{{if .Field.ReadOnly}} disabled{{end}}>{{range .Field.Options}}
<option value="{{.Value}}"{{if eq .Value $.Value}} selected{{end}}>{{.Label}}</option>{{end}}
</select>{{end}}

{{define "file"}}<input type="file" id="field-{{.Field.ID}}" name="{{.Field.ID}}"{{with .Accept}} accept="{{.}}"{{end}}{{if and .Field.Required (not .Value)}} required{{end}}{{if .Field.ReadOnly}} disabled{{end}}>
{{with .FileHelp}}<p class="file-help">{{.}}</p>{{end}}{{with .Value}}<p class="file-current">Selected: {{.}}</p>{{end}}{{end}}
`

var controls = template.Must(template.New("controls").Parse(controlTemplates))

// Render produces the labelled control for f showing v, with errMsg inline
// when non-empty. The control's name is the field id, so a posted form binds
// back with Bind. File controls only describe their constraints; selected
// files are checked by the validator, not here.
func Render(f FieldDefinition, v Value, errMsg string) template.HTML {
	k := kindFor(f.Type)
	data := controlData{
		Field:     f,
		Control:   k.control,
		InputType: k.inputType,
		Value:     v.Text(),
		Error:     errMsg,
		Known:     KnownType(f.Type),
	}
	if f.Validation.Min != nil {
		data.Min = formatBound(*f.Validation.Min)
	}
	if f.Validation.Max != nil {
		data.Max = formatBound(*f.Validation.Max)
	}
	if f.Type == TypeFile {
		data.Accept = strings.Join(f.Validation.AcceptedTypes, ",")
		data.FileHelp = fileHelp(f.Validation)
	}

	var buf bytes.Buffer
	if err := controls.ExecuteTemplate(&buf, "field", data); err != nil {
		return template.HTML(fmt.Sprintf(`<p class="error">Field %q could not be displayed</p>`, html.EscapeString(f.ID)))
	}
	return template.HTML(buf.String())
}

func fileHelp(r Rules) string {
	var parts []string
	if len(r.AcceptedTypes) > 0 {
		parts = append(parts, "Accepted file types: "+strings.Join(r.AcceptedTypes, ", ")+".")
	}
	if r.MaxSizeMB > 0 {
		parts = append(parts, "Maximum size: "+formatBound(r.MaxSizeMB)+" MB.")
	}
	return strings.Join(parts, " ")
}
