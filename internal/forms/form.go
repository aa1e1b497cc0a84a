package forms

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Phase is where a form is in its lifecycle
type Phase int

const (
	PhaseCollecting Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseBlocked
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseBlocked:
		return "blocked"
	case PhaseSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrReadOnly         = errors.New("field is read-only")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("form already submitted")
	ErrNoPreviousStep   = errors.New("already on the first step")
	ErrNoNextStep       = errors.New("already on the last step")
)

// MsgSubmitFailed is the notice shown when a submission fails for a reason
// not attributable to a field
const MsgSubmitFailed = "Check-in could not be submitted. Please try again."

// SendFunc hands validated data to whatever accepts the submission
type SendFunc func(ctx context.Context, data Data) error

// Form is one participant's in-progress form. Errors are always the result
// of running the validator over the current values; an edit removes the
// edited field's error straight away.
type Form struct {
	mu     sync.Mutex
	fields []FieldDefinition
	steps  []int // distinct Step values, ascending
	step   int   // index into steps
	values Data
	errs   map[string]string
	phase  Phase
	notice string
}

// NewForm starts a form over a copy of fields, prefilled with default values
func NewForm(fields []FieldDefinition) *Form {
	f := &Form{
		fields: CloneFields(fields),
		values: make(Data, len(fields)),
		errs:   make(map[string]string),
	}
	for _, fd := range f.fields {
		if !slices.Contains(f.steps, fd.Step) {
			f.steps = append(f.steps, fd.Step)
		}
		f.values[fd.ID] = fd.InitialValue()
	}
	slices.Sort(f.steps)
	if len(f.steps) == 0 {
		f.steps = []int{0}
	}
	return f
}

func (f *Form) field(id string) (FieldDefinition, bool) {
	for _, fd := range f.fields {
		if fd.ID == id {
			return fd, true
		}
	}
	return FieldDefinition{}, false
}

// Fields returns a copy of every field definition, in order
func (f *Form) Fields() []FieldDefinition {
	return CloneFields(f.fields)
}

// Phase returns the current phase
func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Notice is the last non-field failure message, empty when there is none
func (f *Form) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// Value returns the current value of field id
func (f *Form) Value(id string) Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[id]
}

// Values returns a snapshot of every field's value
func (f *Form) Values() Data {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.values)
}

// Errors returns a snapshot of the failing fields and their messages
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.errs)
}

// Set replaces the value of field id and clears its error
func (f *Form) Set(id string, v Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}
	fd, ok := f.field(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	if fd.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, id)
	}

	f.values[id] = v
	delete(f.errs, id)
	if f.phase == PhaseBlocked {
		f.phase = PhaseCollecting
	}
	return nil
}

// SetText binds raw control text to field id and sets it
func (f *Form) SetText(id, raw string) error {
	fd, ok := f.field(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	return f.Set(id, Bind(fd, raw))
}

func (f *Form) editableLocked() error {
	switch f.phase {
	case PhaseSubmitting, PhaseValidating:
		return ErrSubmitInProgress
	case PhaseSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

// Step returns the zero-based index of the current step
func (f *Form) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// StepCount returns how many steps the form has
func (f *Form) StepCount() int {
	return len(f.steps)
}

// IsLastStep reports whether the current step is the final one
func (f *Form) IsLastStep() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step == len(f.steps)-1
}

// StepFields returns the fields shown on the current step
func (f *Form) StepFields() []FieldDefinition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stepFieldsLocked(f.step)
}

func (f *Form) stepFieldsLocked(idx int) []FieldDefinition {
	var out []FieldDefinition
	for _, fd := range f.fields {
		if fd.Step == f.steps[idx] {
			out = append(out, fd.Clone())
		}
	}
	return out
}

func (f *Form) stepIndex(fd FieldDefinition) int {
	return slices.Index(f.steps, fd.Step)
}

// Next validates the current step and advances past it. A failing step
// blocks the form and returns a *ValidationError.
func (f *Form) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}
	if f.step == len(f.steps)-1 {
		return ErrNoNextStep
	}

	stepFields := f.stepFieldsLocked(f.step)
	for _, fd := range stepFields {
		delete(f.errs, fd.ID)
	}
	if problems := ValidateAll(stepFields, f.values); len(problems) > 0 {
		f.blockLocked(problems)
		return &ValidationError{Problems: problems}
	}

	f.step++
	f.phase = PhaseCollecting
	return nil
}

// Back returns to the previous step without validating
func (f *Form) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}
	if f.step == 0 {
		return ErrNoPreviousStep
	}
	f.step--
	return nil
}

func (f *Form) blockLocked(problems []*FieldError) {
	for _, p := range problems {
		f.errs[p.FieldID] = p.Message
	}
	f.phase = PhaseBlocked
}

// Submit re-validates every field, on every step, and hands the values to
// send. Validation failures block the form and move it to the first step
// with an error. A send failure returns the form to collecting with its
// values intact; a *ValidationError from send blocks it instead. Only one
// Submit runs at a time and a submitted form refuses further calls.
func (f *Form) Submit(ctx context.Context, send SendFunc) error {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}

	f.phase = PhaseValidating
	f.notice = ""
	clear(f.errs)
	if problems := ValidateAll(f.fields, f.values); len(problems) > 0 {
		f.blockLocked(problems)
		if fd, ok := f.field(problems[0].FieldID); ok {
			f.step = f.stepIndex(fd)
		}
		f.mu.Unlock()
		return &ValidationError{Problems: problems}
	}

	f.phase = PhaseSubmitting
	data := make(Data, len(f.fields))
	for _, fd := range f.fields {
		data[fd.ID] = f.values[fd.ID]
	}
	f.mu.Unlock()

	err := send(ctx, data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		f.phase = PhaseSubmitted
		return nil
	}

	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Problems) > 0 {
		f.blockLocked(verr.Problems)
		return err
	}
	f.phase = PhaseCollecting
	f.notice = MsgSubmitFailed
	return err
}
