package prompt

import (
	"fmt"
	"strings"

	"exoplanet-classifier-be/pkg/exo"
)

const SystemInstruction = "You are an expert exoplanet classifier. " +
	"Your task is to classify a new exoplanet candidate as either 'CANDIDATE' or 'FALSE POSITIVE' " +
	"based on its physical parameters and a set of similar, already classified examples. " +
	"Analyze the provided examples to understand the patterns, then make a final decision on the query. " +
	"Respond with only the single word 'CANDIDATE' or 'FALSE POSITIVE'."

// FewShotBuilder renders labeled neighbors followed by the unlabeled query.
// Neighbors are rendered in the given order, duplicates included.
type FewShotBuilder struct {
	query     exo.Row
	neighbors []exo.Row
}

func NewFewShotBuilder(query exo.Row, neighbors []exo.Row) *FewShotBuilder {
	return &FewShotBuilder{query: query, neighbors: neighbors}
}

// Build returns the system text and the user text.
func (b *FewShotBuilder) Build() (string, string, error) {
	var prompt strings.Builder

	if err := b.writeExamples(&prompt); err != nil {
		return "", "", err
	}
	if err := b.writeQuery(&prompt); err != nil {
		return "", "", err
	}

	return SystemInstruction, prompt.String(), nil
}

func (b *FewShotBuilder) writeExamples(prompt *strings.Builder) error {
	prompt.WriteString("--- SIMILAR EXAMPLES ---\n")
	for _, n := range b.neighbors {
		text, err := exo.Format(n)
		if err != nil {
			return err
		}
		if !n.Labeled() {
			return fmt.Errorf("example %s has no disposition", n.ID)
		}
		fmt.Fprintf(prompt, "- %s -> %s\n", text, n.Label())
	}
	return nil
}

func (b *FewShotBuilder) writeQuery(prompt *strings.Builder) error {
	text, err := exo.Format(b.query)
	if err != nil {
		return err
	}
	prompt.WriteString("\n--- QUERY ---\n")
	fmt.Fprintf(prompt, "Based on the examples above, classify this query: %s -> ?", text)
	return nil
}

// Build is shorthand for NewFewShotBuilder(query, neighbors).Build().
func Build(query exo.Row, neighbors []exo.Row) (string, string, error) {
	return NewFewShotBuilder(query, neighbors).Build()
}

// ExampleLines returns the rendered example lines of a user prompt.
func ExampleLines(user string) []string {
	var lines []string
	for _, l := range strings.Split(user, "\n") {
		if strings.HasPrefix(l, "- ") {
			lines = append(lines, l)
		}
	}
	return lines
}
