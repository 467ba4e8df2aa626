// Package editor holds the add/edit entry form: raw field text, focus-loss
// validation, unit switching and the save dispatch into the entry store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/weightlog/internal/domain"
)

// Field names a numeric input of the form.
type Field string

const (
	FieldWeight      Field = "weight"
	FieldBodyFat     Field = "bodyFat"
	FieldMuscleMass  Field = "muscleMass"
	FieldVisceralFat Field = "visceralFat"
	FieldDate        Field = "date"
)

// ParseField maps a form input name to its Field.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldWeight, FieldBodyFat, FieldMuscleMass, FieldVisceralFat:
		return f, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

type State int

const (
	Idle State = iota
	Editing
	Validating
	Persisted
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Persisted:
		return "persisted"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Saver is the part of the entry store the editor writes through.
type Saver interface {
	Add(ctx context.Context, entry domain.Entry, photo []byte) (domain.Entry, error)
	Update(ctx context.Context, id string, replacement domain.Entry, photo []byte) (domain.Entry, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// measurements is the parsed form, checked with validator struct tags.
type measurements struct {
	Weight      float64 `validate:"gt=0"`
	BodyFat     float64 `validate:"gte=0,lte=100"`
	MuscleMass  float64 `validate:"gte=0,lte=100"`
	VisceralFat int     `validate:"gte=0"`
}

// Form is one add or edit session. The zero EntryID means a new entry.
type Form struct {
	EntryID     string
	Date        time.Time
	Unit        domain.WeightUnit
	Weight      string
	BodyFat     string
	MuscleMass  string
	VisceralFat string

	loc   *time.Location
	state State
}

// New starts a blank form for date, with weights entered in unit.
func New(date time.Time, unit domain.WeightUnit, loc *time.Location) *Form {
	if !unit.Valid() {
		unit = domain.Kilograms
	}
	if loc == nil {
		loc = time.Local
	}
	return &Form{Date: date, Unit: unit, loc: loc}
}

// Edit starts a form populated from an existing entry.
func Edit(entry domain.Entry, loc *time.Location) *Form {
	f := New(entry.Date, entry.WeightUnit, loc)
	f.EntryID = entry.ID
	f.Weight = formatFloat(entry.Weight)
	f.BodyFat = formatFloat(entry.BodyFatPercent)
	f.MuscleMass = formatFloat(entry.MuscleMassPercent)
	f.VisceralFat = strconv.Itoa(entry.VisceralFat)
	return f
}

func (f *Form) State() State {
	return f.state
}

// IsEdit reports whether saving updates an existing entry.
func (f *Form) IsEdit() bool {
	return f.EntryID != ""
}

// Value returns the raw text of a field.
func (f *Form) Value(field Field) string {
	if p := f.ref(field); p != nil {
		return *p
	}
	return ""
}

// Set replaces the raw text of a field.
func (f *Form) Set(field Field, value string) error {
	p := f.ref(field)
	if p == nil {
		return fmt.Errorf("unknown field %q", field)
	}
	*p = value
	f.state = Editing
	return nil
}

func (f *Form) SetDate(date time.Time) {
	f.Date = date
	f.state = Editing
}

// SetUnit switches the weight unit. A parseable weight is converted into the
// new unit and re-rendered with one decimal place.
func (f *Form) SetUnit(unit domain.WeightUnit) error {
	if !unit.Valid() {
		return fmt.Errorf("unknown weight unit %q", unit)
	}
	if v, err := parseFloat(f.Weight); err == nil && unit != f.Unit {
		f.Weight = domain.FormatWeight(domain.ConvertWeight(v, f.Unit, unit))
	}
	f.Unit = unit
	f.state = Editing
	return nil
}

// Blur validates a field on focus loss. Percentages must lie in [0,100] and
// visceral fat must not be negative. An empty field passes. On failure the
// field is cleared and the error returned.
func (f *Form) Blur(field Field) *FieldError {
	raw := strings.TrimSpace(f.Value(field))
	if raw == "" {
		return nil
	}

	var fe *FieldError
	switch field {
	case FieldBodyFat, FieldMuscleMass:
		fe = checkVar(field, raw, "gte=0,lte=100", msgPercentRange)
	case FieldVisceralFat:
		fe = checkVar(field, raw, "gte=0", msgNegative)
	default:
		return nil
	}
	if fe != nil {
		_ = f.Set(field, "")
	}
	return fe
}

func checkVar(field Field, raw, tag, rangeMsg string) *FieldError {
	v, err := parseFloat(raw)
	if err != nil {
		return fieldError(field, msgNumberFormat)
	}
	if err := validate.Var(v, tag); err != nil {
		return fieldError(field, rangeMsg)
	}
	return nil
}

// Save parses and checks every field, then adds a new entry or updates the
// edited one through saver. A *FieldError is returned for invalid input, in
// which case the offending field is cleared. Persistence errors are returned
// as is.
func (f *Form) Save(ctx context.Context, saver Saver, photo []byte, now time.Time) (domain.Entry, error) {
	f.state = Validating

	entry, fe := f.entry(now)
	if fe != nil {
		f.state = Rejected
		if fe.Field != FieldDate {
			p := f.ref(fe.Field)
			*p = ""
		}
		return domain.Entry{}, fe
	}

	var (
		saved domain.Entry
		err   error
	)
	if f.IsEdit() {
		saved, err = saver.Update(ctx, f.EntryID, entry, photo)
	} else {
		saved, err = saver.Add(ctx, entry, photo)
	}
	if err != nil {
		f.state = Rejected
		return domain.Entry{}, err
	}

	f.EntryID = saved.ID
	f.state = Persisted
	return saved, nil
}

func (f *Form) entry(now time.Time) (domain.Entry, *FieldError) {
	var m measurements
	var err error

	if m.Weight, err = parseFloat(f.Weight); err != nil {
		return domain.Entry{}, fieldError(FieldWeight, msgWeightNumeric)
	}
	if m.MuscleMass, err = parseFloat(f.MuscleMass); err != nil {
		return domain.Entry{}, fieldError(FieldMuscleMass, msgMuscleMassNumeric)
	}
	if m.BodyFat, err = parseFloat(f.BodyFat); err != nil {
		return domain.Entry{}, fieldError(FieldBodyFat, msgBodyFatNumeric)
	}
	if m.VisceralFat, err = strconv.Atoi(strings.TrimSpace(f.VisceralFat)); err != nil {
		return domain.Entry{}, fieldError(FieldVisceralFat, msgVisceralInteger)
	}

	if domain.StartOfDay(f.Date, f.loc).After(domain.StartOfDay(now, f.loc)) {
		return domain.Entry{}, fieldError(FieldDate, msgFutureDate)
	}

	if err := validate.Struct(m); err != nil {
		if fe := toFieldError(err); fe != nil {
			return domain.Entry{}, fe
		}
		return domain.Entry{}, &FieldError{Field: FieldWeight, Message: err.Error()}
	}

	return domain.Entry{
		ID:                f.EntryID,
		Date:              f.Date,
		Weight:            m.Weight,
		BodyFatPercent:    m.BodyFat,
		MuscleMassPercent: m.MuscleMass,
		VisceralFat:       m.VisceralFat,
		WeightUnit:        f.Unit,
	}, nil
}

func (f *Form) ref(field Field) *string {
	switch field {
	case FieldWeight:
		return &f.Weight
	case FieldBodyFat:
		return &f.BodyFat
	case FieldMuscleMass:
		return &f.MuscleMass
	case FieldVisceralFat:
		return &f.VisceralFat
	}
	return nil
}

var errNotFinite = errors.New("not a finite number")

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
