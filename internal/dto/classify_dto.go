package dto

import "exoplanet-classifier-be/pkg/exo"

// FeaturesRequest carries the five physical features of one transit signal.
type FeaturesRequest struct {
	Period   *float64 `json:"period" validate:"required"`
	Duration *float64 `json:"duration" validate:"required"`
	Depth    *float64 `json:"depth" validate:"required"`
	Prad     *float64 `json:"prad" validate:"required"`
	Teq      *float64 `json:"teq" validate:"required"`
}

func (r FeaturesRequest) Row(id string) exo.Row {
	return exo.Row{
		ID:                     id,
		Type:                   exo.MissionUser,
		Period:                 r.Period,
		Duration:               r.Duration,
		Depth:                  r.Depth,
		PlanetaryRadius:        r.Prad,
		EquilibriumTemperature: r.Teq,
	}
}

type ClassifyLLMRequest struct {
	FeaturesRequest
	K        int  `json:"k" validate:"omitempty,min=1,max=200"`
	Evidence bool `json:"evidence"`
}

type ClassifyBatchRequest struct {
	Rows []FeaturesRequest `json:"rows" validate:"required,min=1,dive"`
	K    int               `json:"k" validate:"omitempty,min=1,max=200"`
}

type NeighborResponse struct {
	Id          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Type        string    `json:"type"`
	Label       exo.Label `json:"label"`
	Distance    float32   `json:"distance"`
	Description string    `json:"description"`
}

type ClassifyResponse struct {
	Model          string             `json:"model"`
	Prediction     exo.Label          `json:"prediction"`
	Confidence     float64            `json:"confidence"`
	NeighborsUsed  int                `json:"neighbors_used"`
	Neighbors      []NeighborResponse `json:"neighbors,omitempty"`
	Store          string             `json:"store"`
	ProcessingTime float64            `json:"processing_time"`
	Reason         string             `json:"reason,omitempty"`
}

type ClassifyBatchResponse struct {
	Results []ClassifyResponse `json:"results"`
}

type TabularResponse struct {
	Model          string    `json:"model"`
	Prediction     exo.Label `json:"prediction"`
	Confidence     float64   `json:"confidence"`
	ProcessingTime float64   `json:"processing_time"`
}
