package dto

type HeldOutRequest struct {
	Ids []string `json:"ids" validate:"omitempty,dive,required"`
}

type HeldOutResponse struct {
	Ids   []string `json:"ids"`
	Count int      `json:"count"`
}

type HeldOutChangeResponse struct {
	Changed int `json:"changed"`
	Count   int `json:"count"`
}
