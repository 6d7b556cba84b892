package dto

import (
	"time"

	"protocolo/internal/core/id"
	"protocolo/internal/domain/docnumber"
)

// ReserveNumbersRequest asks for a block of numbers from one series.
// Count defaults to 1 when omitted.
type ReserveNumbersRequest struct {
	SeriesID string `json:"seriesId" binding:"required,uuid"`
	Count    int    `json:"count" binding:"omitempty,min=1,max=100"`
}

// IssueNumberRequest confirms a reserved number with document metadata.
type IssueNumberRequest struct {
	Metadata map[string]any `json:"metadata"`
}

// VoidNumberRequest permanently invalidates a number.
type VoidNumberRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListNumbersQuery filters the numbers listing.
type ListNumbersQuery struct {
	PaginationRequest

	SeriesID string `form:"seriesId" binding:"omitempty,uuid"`
	Year     *int   `form:"year"`
	State    string `form:"state" binding:"omitempty,oneof=RESERVED ISSUED VOIDED"`
	Q        string `form:"q"`
}

// ToFilter converts the query to a domain filter.
func (q ListNumbersQuery) ToFilter() docnumber.Filter {
	f := docnumber.Filter{
		Year:   q.Year,
		Search: q.Q,
	}
	if q.SeriesID != "" {
		if sid, err := id.Parse(q.SeriesID); err == nil {
			f.SeriesID = &sid
		}
	}
	if q.State != "" {
		state := docnumber.State(q.State)
		f.State = &state
	}
	return f
}

// NumberResponse is the API shape of a document number.
type NumberResponse struct {
	ID        string         `json:"id"`
	SeriesID  string         `json:"seriesId"`
	Year      int            `json:"year"`
	Seq       int64          `json:"seq"`
	Formatted string         `json:"formatted"`
	State     string         `json:"state"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	ReservedBy string     `json:"reservedBy"`
	ReservedAt time.Time  `json:"reservedAt"`
	IssuedBy   *string    `json:"issuedBy,omitempty"`
	IssuedAt   *time.Time `json:"issuedAt,omitempty"`
	VoidedBy   *string    `json:"voidedBy,omitempty"`
	VoidedAt   *time.Time `json:"voidedAt,omitempty"`
	VoidReason *string    `json:"voidReason,omitempty"`
}

// FromDocNumber maps a domain number to its API shape.
func FromDocNumber(n *docnumber.DocNumber) NumberResponse {
	return NumberResponse{
		ID:         n.ID.String(),
		SeriesID:   n.SeriesID.String(),
		Year:       n.Year,
		Seq:        n.Seq,
		Formatted:  n.Formatted,
		State:      string(n.State),
		Metadata:   n.Metadata,
		ReservedBy: n.ReservedBy,
		ReservedAt: n.ReservedAt,
		IssuedBy:   n.IssuedBy,
		IssuedAt:   n.IssuedAt,
		VoidedBy:   n.VoidedBy,
		VoidedAt:   n.VoidedAt,
		VoidReason: n.VoidReason,
	}
}

// FromDocNumberList maps a list of domain numbers.
func FromDocNumberList(list []*docnumber.DocNumber) []NumberResponse {
	out := make([]NumberResponse, 0, len(list))
	for _, n := range list {
		out = append(out, FromDocNumber(n))
	}
	return out
}
