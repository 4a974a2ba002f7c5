package dto

import "exoplanet-classifier-be/pkg/exo"

type AddRowRequest struct {
	FeaturesRequest
	Id          string `json:"id"`
	Name        string `json:"name"`
	Disposition string `json:"disposition" validate:"required"`
}

type DatasetResponse struct {
	Rows      []exo.Row `json:"rows"`
	UserRows  int       `json:"user_rows"`
	BaseRows  int       `json:"base_rows"`
	TotalRows int       `json:"total_rows"`
	HasStore  bool      `json:"has_store"`
}

type UploadResponse struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	UserRows   int `json:"user_rows"`
}

type SaveDatasetResponse struct {
	TaskId string `json:"task_id"`
	Rows   int    `json:"rows"`
}

type SplitRequest struct {
	TestRatio float64 `json:"test_ratio" validate:"gt=0,lt=1"`
	Seed      int64   `json:"seed"`
}

type SplitResponse struct {
	Train int `json:"train"`
	Test  int `json:"test"`
}

type EvaluateRequest struct {
	Predictor string `json:"predictor" validate:"omitempty,oneof=llm tabular"`
	Limit     int    `json:"limit" validate:"omitempty,min=1"`
	K         int    `json:"k" validate:"omitempty,min=1,max=200"`
}

// ConfusionMatrix counts predictions against true labels; errors are counted separately.
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

type EvaluateResponse struct {
	Predictor string          `json:"predictor"`
	Evaluated int             `json:"evaluated"`
	Correct   int             `json:"correct"`
	Errors    int             `json:"errors"`
	Accuracy  float64         `json:"accuracy"`
	Confusion ConfusionMatrix `json:"confusion"`
}
