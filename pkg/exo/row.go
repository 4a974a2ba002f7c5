package exo

import (
	"fmt"
	"math"
)

// Mission tags carried in Row.Type.
const (
	MissionKOI  = "koi"
	MissionTOI  = "toi"
	MissionK2   = "k2"
	MissionUser = "user"
)

// Row is one transit signal with its physical features.
// Numeric fields are pointers so that a missing value is distinguishable from zero.
type Row struct {
	ID                     string       `json:"id"`
	Type                   string       `json:"type"`
	Name                   string       `json:"name"`
	Disposition            *Disposition `json:"disposition,omitempty"`
	Period                 *float64     `json:"period"`
	Duration               *float64     `json:"duration"`
	Depth                  *float64     `json:"depth"`
	PlanetaryRadius        *float64     `json:"prad"`
	EquilibriumTemperature *float64     `json:"teq"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Labeled reports whether the row carries a disposition.
func (r Row) Labeled() bool {
	return r.Disposition != nil
}

// Label returns the categorical label of a labeled row, or LabelError when unlabeled.
func (r Row) Label() Label {
	if r.Disposition == nil {
		return LabelError
	}
	return r.Disposition.Label()
}

// Validate checks that all five features are present and finite.
func (r Row) Validate() error {
	for _, f := range r.features() {
		if f.value == nil {
			return &MalformedRowError{RowID: r.ID, Field: f.name, Reason: "missing"}
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return &MalformedRowError{RowID: r.ID, Field: f.name, Reason: "not a finite number"}
		}
	}
	return nil
}

type namedFeature struct {
	name  string
	value *float64
}

func (r Row) features() []namedFeature {
	return []namedFeature{
		{"period", r.Period},
		{"duration", r.Duration},
		{"depth", r.Depth},
		{"prad", r.PlanetaryRadius},
		{"teq", r.EquilibriumTemperature},
	}
}

// MalformedRowError is returned when a required numeric feature is missing or invalid.
type MalformedRowError struct {
	RowID  string
	Field  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.RowID == "" {
		return fmt.Sprintf("malformed row: field %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed row %s: field %s %s", e.RowID, e.Field, e.Reason)
}
