// Package series provides the numbering series registry.
// A series is a named stream of document numbers sharing one format template
// and reset policy.
package series

import (
	"time"
	"unicode/utf8"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/id"
)

// ResetPolicy controls when a series' counter restarts.
type ResetPolicy string

const (
	// ResetAnnual restarts the counter at the year boundary.
	ResetAnnual ResetPolicy = "ANNUAL"
	// ResetContinuous never restarts the counter.
	ResetContinuous ResetPolicy = "CONTINUOUS"
)

// ContinuousYearKey is the fixed sentinel year under which CONTINUOUS series
// keep their single counter row and their allocated numbers.
const ContinuousYearKey = 0

// Field length bounds.
const (
	MaxNameLen    = 100
	MaxTipoLen    = 50
	MaxSiglaLen   = 20
	MaxFormatoLen = 100
)

// Series is a numbering stream. Its numbering identity (ID) is immutable;
// template, name, acronym and policy may be edited, which changes future
// formatting only — already-rendered numbers keep their original string.
type Series struct {
	ID id.ID `db:"id" json:"id"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Tipo is the free-text document category
	Tipo string `db:"tipo" json:"tipo"`

	// Sigla is the acronym substituted for #{sigla}. May be empty.
	Sigla string `db:"sigla" json:"sigla"`

	// Formato is the user-authored format template
	Formato string `db:"formato" json:"formato"`

	ResetPolicy ResetPolicy `db:"reset_policy" json:"resetPolicy"`

	// IsActive is flipped to false on soft delete. Numbers already issued
	// under an inactive series remain valid and queryable.
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// YearKey resolves the counter key for this series at the given instant:
// the calendar year for ANNUAL, the fixed sentinel for CONTINUOUS.
func (s *Series) YearKey(now time.Time) int {
	if s.ResetPolicy == ResetContinuous {
		return ContinuousYearKey
	}
	return now.Year()
}

// Validate checks field bounds and enum membership.
// Format tokens are deliberately not validated: unrecognized #{...} sequences
// render verbatim, matching historical behavior.
func (s *Series) Validate() error {
	if s.Name == "" || utf8.RuneCountInString(s.Name) > MaxNameLen {
		return apperror.NewValidation("name is required and must be at most 100 characters").
			WithDetail("field", "name")
	}
	if s.Tipo == "" || utf8.RuneCountInString(s.Tipo) > MaxTipoLen {
		return apperror.NewValidation("tipo is required and must be at most 50 characters").
			WithDetail("field", "tipo")
	}
	if utf8.RuneCountInString(s.Sigla) > MaxSiglaLen {
		return apperror.NewValidation("sigla must be at most 20 characters").
			WithDetail("field", "sigla")
	}
	if s.Formato == "" || utf8.RuneCountInString(s.Formato) > MaxFormatoLen {
		return apperror.NewValidation("formato is required and must be at most 100 characters").
			WithDetail("field", "formato")
	}
	if !isValidResetPolicy(s.ResetPolicy) {
		return apperror.NewValidation("resetPolicy must be ANNUAL or CONTINUOUS").
			WithDetail("field", "resetPolicy").
			WithDetail("value", string(s.ResetPolicy))
	}
	return nil
}

func isValidResetPolicy(p ResetPolicy) bool {
	switch p {
	case ResetAnnual, ResetContinuous:
		return true
	}
	return false
}

// Patch is a partial update. Nil fields are left untouched.
// A patch never touches counters or previously issued numbers.
type Patch struct {
	Name        *string
	Tipo        *string
	Sigla       *string
	Formato     *string
	ResetPolicy *ResetPolicy
}

// Apply overwrites the non-nil patch fields on s.
func (p Patch) Apply(s *Series) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Tipo != nil {
		s.Tipo = *p.Tipo
	}
	if p.Sigla != nil {
		s.Sigla = *p.Sigla
	}
	if p.Formato != nil {
		s.Formato = *p.Formato
	}
	if p.ResetPolicy != nil {
		s.ResetPolicy = *p.ResetPolicy
	}
}

// WithNext is a series enriched with its computed next-number preview.
// The preview formats currentSeq+1 without mutating the counter.
type WithNext struct {
	Series

	NextNumber  string `json:"nextNumber"`
	CurrentYear int    `json:"currentYear"`
	CurrentSeq  int64  `json:"currentSeq"`
}
