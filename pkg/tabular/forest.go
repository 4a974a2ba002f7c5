package tabular

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"exoplanet-classifier-be/pkg/exo"
)

const ModelName = "random_forest"

var ErrModelUnavailable = errors.New("tabular model is not loaded")

// Node is one split or leaf in an exported decision tree. Leaves have Left < 0.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Scaler standardizes each feature as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Model is a RandomForest exported from training as JSON.
// Classes maps the columns of each leaf value onto dispositions.
type Model struct {
	Classes []int   `json:"classes"`
	Scaler  *Scaler `json:"scaler,omitempty"`
	Trees   []Tree  `json:"trees"`
}

type Prediction struct {
	Label      exo.Label `json:"prediction"`
	Confidence float64   `json:"confidence"`
}

func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModel(data)
}

func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Trees) == 0 {
		return errors.New("model has no trees")
	}
	if len(m.Classes) == 0 {
		m.Classes = []int{int(exo.FalsePositive), int(exo.Candidate)}
	}
	n := len(FeatureNames)
	if m.Scaler != nil && (len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n) {
		return fmt.Errorf("scaler expects %d features", n)
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, node := range t.Nodes {
			if node.Left < 0 {
				if len(node.Value) != len(m.Classes) {
					return fmt.Errorf("tree %d leaf %d has %d values, want %d", ti, ni, len(node.Value), len(m.Classes))
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= n {
				return fmt.Errorf("tree %d node %d splits on unknown feature %d", ti, ni, node.Feature)
			}
			if node.Left >= len(t.Nodes) || node.Right < 0 || node.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d has children out of range", ti, ni)
			}
		}
	}
	return nil
}

// Predict averages the normalized leaf distributions of all trees and returns the
// majority class with its vote share.
func (m *Model) Predict(features []float64) (Prediction, error) {
	if len(features) != len(FeatureNames) {
		return Prediction{}, fmt.Errorf("got %d features, want %d", len(features), len(FeatureNames))
	}
	x := m.scale(features)

	proba := make([]float64, len(m.Classes))
	for _, t := range m.Trees {
		leaf, err := t.leaf(x)
		if err != nil {
			return Prediction{}, err
		}
		var total float64
		for _, v := range leaf.Value {
			total += v
		}
		if total == 0 {
			continue
		}
		for i, v := range leaf.Value {
			proba[i] += v / total
		}
	}

	best := 0
	for i := range proba {
		proba[i] /= float64(len(m.Trees))
		if proba[i] > proba[best] {
			best = i
		}
	}
	return Prediction{
		Label:      exo.Disposition(m.Classes[best]).Label(),
		Confidence: proba[best],
	}, nil
}

// PredictRow runs Features then Predict.
func (m *Model) PredictRow(row exo.Row) (Prediction, error) {
	features, err := Features(row)
	if err != nil {
		return Prediction{}, err
	}
	return m.Predict(features)
}

func (m *Model) scale(features []float64) []float64 {
	if m.Scaler == nil {
		return features
	}
	x := make([]float64, len(features))
	for i, v := range features {
		s := m.Scaler.Scale[i]
		if s == 0 {
			s = 1
		}
		x[i] = (v - m.Scaler.Mean[i]) / s
	}
	return x
}

func (t Tree) leaf(x []float64) (Node, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[i]
		if node.Left < 0 {
			return node, nil
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return Node{}, errors.New("tree has a cycle")
}
