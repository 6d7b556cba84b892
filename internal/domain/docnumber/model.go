// Package docnumber provides allocation and lifecycle of document numbers.
// A DocNumber is one allocated identifier: unique (series, year, seq), its
// rendered display string, and a monotone state machine
// RESERVED → ISSUED → VOIDED.
package docnumber

import (
	"time"

	"protocolo/internal/core/id"
)

// State is the lifecycle state of a document number.
type State string

const (
	// StateReserved is the initial state set by the allocator.
	StateReserved State = "RESERVED"
	// StateIssued means the number was confirmed with metadata.
	StateIssued State = "ISSUED"
	// StateVoided is terminal. A voided number is never resurrected.
	StateVoided State = "VOIDED"
)

// MaxVoidReasonLen bounds the mandatory void reason.
const MaxVoidReasonLen = 500

// Metadata is the free-form document payload attached at issuance
// (process id, requester, subject). Persisted as JSONB; no fixed schema.
type Metadata map[string]any

// DocNumber is one allocated identifier. Created RESERVED by the allocator,
// thereafter mutated only through state-gated single-row updates.
type DocNumber struct {
	ID id.ID `db:"id" json:"id"`

	SeriesID id.ID `db:"series_id" json:"seriesId"`

	// Year is the reset-period key the number was allocated under
	// (calendar year for ANNUAL series, the sentinel for CONTINUOUS).
	Year int `db:"year" json:"year"`

	// Seq is unique within (series, year) and part of a contiguous run
	// starting at 1.
	Seq int64 `db:"seq" json:"seq"`

	// Formatted is the display string rendered at reservation time.
	// Later template edits never alter it.
	Formatted string `db:"formatted" json:"formatted"`

	State State `db:"state" json:"state"`

	Metadata Metadata `db:"metadata" json:"metadata,omitempty"`

	ReservedBy string    `db:"reserved_by" json:"reservedBy"`
	ReservedAt time.Time `db:"reserved_at" json:"reservedAt"`

	IssuedBy *string    `db:"issued_by" json:"issuedBy,omitempty"`
	IssuedAt *time.Time `db:"issued_at" json:"issuedAt,omitempty"`

	VoidedBy *string    `db:"voided_by" json:"voidedBy,omitempty"`
	VoidedAt *time.Time `db:"voided_at" json:"voidedAt,omitempty"`

	// VoidReason is set exactly once, when the number is voided.
	VoidReason *string `db:"void_reason" json:"voidReason,omitempty"`
}
