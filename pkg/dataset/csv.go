package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"exoplanet-classifier-be/pkg/exo"

	"github.com/google/uuid"
)

// Header is the fixed column order of every dataset file we write.
var Header = []string{"type", "id", "name", "disposition", "period", "duration", "depth", "prad", "teq"}

// aliases maps accepted upload column names onto Header columns.
var aliases = map[string]string{
	"type":                    "type",
	"mission":                 "type",
	"id":                      "id",
	"name":                    "name",
	"disposition":             "disposition",
	"label":                   "disposition",
	"period":                  "period",
	"koi_period":              "period",
	"pl_orbper":               "period",
	"duration":                "duration",
	"koi_duration":            "duration",
	"pl_trandur":              "duration",
	"pl_trandurh":             "duration",
	"depth":                   "depth",
	"koi_depth":               "depth",
	"pl_trandep":              "depth",
	"prad":                    "prad",
	"planetary_radius":        "prad",
	"koi_prad":                "prad",
	"pl_rade":                 "prad",
	"teq":                     "teq",
	"equilibrium_temperature": "teq",
	"koi_teq":                 "teq",
	"pl_eqt":                  "teq",
}

type ReadOptions struct {
	// DefaultType fills an empty or missing type column.
	DefaultType string
	// GenerateIDs assigns a random id to rows without one.
	GenerateIDs bool
}

// LineError reports a value that could not be parsed.
type LineError struct {
	Line   int
	Column string
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

var ErrNoHeader = errors.New("csv has no header row")

// Read parses a dataset CSV, mapping columns by header name. Lines starting with '#' are skipped.
func Read(r io.Reader, opts ReadOptions) ([]exo.Row, error) {
	body, err := stripComments(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := aliases[name]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("csv header %v has no known columns", header)
	}

	var rows []exo.Row
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}

		row, err := parseRecord(record, columns, line, opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string, columns map[string]int, line int, opts ReadOptions) (exo.Row, error) {
	get := func(col string) string {
		if i, ok := columns[col]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	row := exo.Row{ID: get("id"), Type: get("type"), Name: get("name")}
	if row.Type == "" {
		row.Type = opts.DefaultType
	}
	if row.ID == "" && opts.GenerateIDs {
		row.ID = uuid.NewString()
	}

	d, err := exo.ParseDisposition(get("disposition"))
	if err != nil {
		return row, &LineError{Line: line, Column: "disposition", Err: err}
	}
	row.Disposition = d

	targets := []struct {
		col string
		dst **float64
	}{
		{"period", &row.Period},
		{"duration", &row.Duration},
		{"depth", &row.Depth},
		{"prad", &row.PlanetaryRadius},
		{"teq", &row.EquilibriumTemperature},
	}
	for _, t := range targets {
		v, err := ParseOptionalFloat(get(t.col))
		if err != nil {
			return row, &LineError{Line: line, Column: t.col, Err: err}
		}
		*t.dst = v
	}
	return row, nil
}

// ParseOptionalFloat returns nil for empty and NaN values.
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

// Write emits rows under Header. Missing values are written as empty fields.
func Write(w io.Writer, rows []exo.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		disposition := ""
		if r.Disposition != nil {
			disposition = strconv.Itoa(int(*r.Disposition))
		}
		if err := cw.Write([]string{
			r.Type, r.ID, r.Name, disposition,
			formatFloat(r.Period),
			formatFloat(r.Duration),
			formatFloat(r.Depth),
			formatFloat(r.PlanetaryRadius),
			formatFloat(r.EquilibriumTemperature),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func Encode(rows []exo.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// stripComments drops lines starting with '#', as found at the top of NASA archive exports.
func stripComments(r io.Reader) (io.Reader, error) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("#")) {
			continue
		}
		out.Write(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &out, nil
}
