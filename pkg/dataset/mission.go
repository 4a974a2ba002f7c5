package dataset

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"exoplanet-classifier-be/pkg/exo"

	"gopkg.in/yaml.v3"
)

//go:embed missions.yaml
var missionsYAML []byte

type DispositionRule struct {
	Column        string   `yaml:"column"`
	FalsePositive []string `yaml:"false_positive"`
}

// Mission maps one archive table onto Row fields. Any disposition not listed
// as a false positive counts as a candidate.
type Mission struct {
	Type        string            `yaml:"type"`
	File        string            `yaml:"file"`
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	NamePrefix  string            `yaml:"name_prefix"`
	Disposition DispositionRule   `yaml:"disposition"`
	Features    map[string]string `yaml:"features"`
}

type missionFile struct {
	Missions []Mission `yaml:"missions"`
}

// Missions returns the built-in mission mappings.
func Missions() ([]Mission, error) {
	return ParseMissions(missionsYAML)
}

func ParseMissions(data []byte) ([]Mission, error) {
	var f missionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse missions: %w", err)
	}
	for _, m := range f.Missions {
		if m.Type == "" || m.ID == "" || m.Disposition.Column == "" {
			return nil, fmt.Errorf("mission %q is missing type, id or disposition column", m.Type)
		}
		for _, col := range []string{"period", "duration", "depth", "prad", "teq"} {
			if m.Features[col] == "" {
				return nil, fmt.Errorf("mission %s has no column for %s", m.Type, col)
			}
		}
	}
	return f.Missions, nil
}

func MissionByType(missions []Mission, typ string) (Mission, bool) {
	for _, m := range missions {
		if m.Type == typ {
			return m, true
		}
	}
	return Mission{}, false
}

// Convert reads an archive export and maps it onto rows. Rows missing the id are skipped;
// unparsable numbers become missing features and are dropped later at index time.
func (m Mission) Convert(r io.Reader) ([]exo.Row, error) {
	body, err := stripComments(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	required := []string{m.ID, m.Disposition.Column}
	for _, col := range m.Features {
		required = append(required, col)
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s export has no column %q", m.Type, col)
		}
	}

	falsePositive := make(map[string]struct{}, len(m.Disposition.FalsePositive))
	for _, v := range m.Disposition.FalsePositive {
		falsePositive[strings.ToUpper(v)] = struct{}{}
	}

	var rows []exo.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		id := get(m.ID)
		if id == "" {
			continue
		}
		name := get(m.Name)
		if name == "" {
			name = id
		}
		row := exo.Row{ID: id, Type: m.Type, Name: m.NamePrefix + name}

		if raw := strings.ToUpper(get(m.Disposition.Column)); raw != "" {
			if _, fp := falsePositive[raw]; fp {
				row.Disposition = exo.FalsePositive.Ptr()
			} else {
				row.Disposition = exo.Candidate.Ptr()
			}
		}

		row.Period, _ = ParseOptionalFloat(get(m.Features["period"]))
		row.Duration, _ = ParseOptionalFloat(get(m.Features["duration"]))
		row.Depth, _ = ParseOptionalFloat(get(m.Features["depth"]))
		row.PlanetaryRadius, _ = ParseOptionalFloat(get(m.Features["prad"]))
		row.EquilibriumTemperature, _ = ParseOptionalFloat(get(m.Features["teq"]))
		rows = append(rows, row)
	}
	return rows, nil
}
