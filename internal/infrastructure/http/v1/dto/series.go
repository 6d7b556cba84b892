package dto

import (
	"time"

	"protocolo/internal/domain/series"
)

// CreateSeriesRequest is the payload for creating a numbering series.
type CreateSeriesRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Tipo        string `json:"tipo" binding:"required,max=50"`
	Sigla       string `json:"sigla" binding:"max=20"`
	Formato     string `json:"formato" binding:"required,max=100"`
	ResetPolicy string `json:"resetPolicy" binding:"required,oneof=ANNUAL CONTINUOUS"`
}

// ToInput converts the request to a domain create input.
func (r CreateSeriesRequest) ToInput() series.CreateInput {
	return series.CreateInput{
		Name:        r.Name,
		Tipo:        r.Tipo,
		Sigla:       r.Sigla,
		Formato:     r.Formato,
		ResetPolicy: series.ResetPolicy(r.ResetPolicy),
	}
}

// UpdateSeriesRequest is a partial patch; absent fields stay untouched.
type UpdateSeriesRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Tipo        *string `json:"tipo" binding:"omitempty,min=1,max=50"`
	Sigla       *string `json:"sigla" binding:"omitempty,max=20"`
	Formato     *string `json:"formato" binding:"omitempty,min=1,max=100"`
	ResetPolicy *string `json:"resetPolicy" binding:"omitempty,oneof=ANNUAL CONTINUOUS"`
}

// ToPatch converts the request to a domain patch.
func (r UpdateSeriesRequest) ToPatch() series.Patch {
	p := series.Patch{
		Name:    r.Name,
		Tipo:    r.Tipo,
		Sigla:   r.Sigla,
		Formato: r.Formato,
	}
	if r.ResetPolicy != nil {
		policy := series.ResetPolicy(*r.ResetPolicy)
		p.ResetPolicy = &policy
	}
	return p
}

// SeriesResponse is the API shape of a series with its next-number preview.
type SeriesResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tipo        string    `json:"tipo"`
	Sigla       string    `json:"sigla"`
	Formato     string    `json:"formato"`
	ResetPolicy string    `json:"resetPolicy"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`

	NextNumber  string `json:"nextNumber,omitempty"`
	CurrentYear int    `json:"currentYear,omitempty"`
	CurrentSeq  int64  `json:"currentSeq"`
}

// FromSeries maps a bare series without preview fields.
func FromSeries(s *series.Series) SeriesResponse {
	return SeriesResponse{
		ID:          s.ID.String(),
		Name:        s.Name,
		Tipo:        s.Tipo,
		Sigla:       s.Sigla,
		Formato:     s.Formato,
		ResetPolicy: string(s.ResetPolicy),
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
	}
}

// FromSeriesWithNext maps a series enriched with its preview.
func FromSeriesWithNext(s *series.WithNext) SeriesResponse {
	out := FromSeries(&s.Series)
	out.NextNumber = s.NextNumber
	out.CurrentYear = s.CurrentYear
	out.CurrentSeq = s.CurrentSeq
	return out
}

// FromSeriesWithNextList maps a list of enriched series.
func FromSeriesWithNextList(list []*series.WithNext) []SeriesResponse {
	out := make([]SeriesResponse, 0, len(list))
	for _, s := range list {
		out = append(out, FromSeriesWithNext(s))
	}
	return out
}
