package exo

import (
	"fmt"
	"strings"
)

// Disposition is the canonical integer encoding of a label: 1 = candidate, 0 = false positive.
type Disposition int

const (
	FalsePositive Disposition = 0
	Candidate     Disposition = 1
)

// Ptr returns a pointer to d, for building Rows.
func (d Disposition) Ptr() *Disposition {
	return &d
}

func (d Disposition) Label() Label {
	if d == Candidate {
		return LabelCandidate
	}
	return LabelFalsePositive
}

// ParseDisposition accepts the integer encodings and the textual labels found in CSV sources.
func ParseDisposition(raw string) (*Disposition, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "":
		return nil, nil
	case "1", "1.0", "CANDIDATE", "CONFIRMED", "PC", "CP", "KP":
		return Candidate.Ptr(), nil
	case "0", "0.0", "FALSE POSITIVE", "FALSE_POSITIVE", "FP", "FA", "REFUTED":
		return FalsePositive.Ptr(), nil
	}
	return nil, fmt.Errorf("unknown disposition %q", raw)
}

// Label is the categorical output of a classifier.
type Label string

const (
	LabelCandidate     Label = "CANDIDATE"
	LabelFalsePositive Label = "FALSE POSITIVE"
	LabelError         Label = "ERROR"
)

// NormalizeLabel uppercases and trims raw model output and accepts only an exact label.
func NormalizeLabel(raw string) (Label, bool) {
	switch Label(strings.ToUpper(strings.TrimSpace(raw))) {
	case LabelCandidate:
		return LabelCandidate, true
	case LabelFalsePositive:
		return LabelFalsePositive, true
	}
	return LabelError, false
}

// Disposition converts a valid label back to its integer encoding.
func (l Label) Disposition() (Disposition, bool) {
	switch l {
	case LabelCandidate:
		return Candidate, true
	case LabelFalsePositive:
		return FalsePositive, true
	}
	return 0, false
}

func (l Label) Valid() bool {
	_, ok := l.Disposition()
	return ok
}
