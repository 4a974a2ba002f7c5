package exo

import "fmt"

const canonicalLayout = "period=%.2f, duration=%.3f, depth=%.1f, radius=%.2f, temp=%.0f"

// Format renders the canonical text of a row used as the embedding unit.
// The output depends only on the five numeric features.
func Format(r Row) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(canonicalLayout,
		*r.Period,
		*r.Duration,
		*r.Depth,
		*r.PlanetaryRadius,
		*r.EquilibriumTemperature,
	), nil
}

// FormatAll formats rows in order, failing on the first malformed one.
func FormatAll(rows []Row) ([]string, error) {
	texts := make([]string, len(rows))
	for i, r := range rows {
		text, err := Format(r)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	return texts, nil
}
