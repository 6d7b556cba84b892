// Package format renders document number templates.
//
// Templates are user-authored strings with substitution tokens:
//
//	#{seq:N}  sequence value, zero-padded to at least N digits
//	#{sigla}  series acronym (may be empty)
//	#{ano}    4-digit year
//
// Example: template "#{seq:3}/#{sigla}" with seq 7 and sigla "PRES"
// renders "007/PRES".
//
// Rendering is pure and total: unrecognized #{...} sequences are left
// verbatim rather than rejected.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Token patterns. seqToken captures the pad width.
var (
	seqToken   = regexp.MustCompile(`#\{seq:(\d+)\}`)
	siglaToken = "#{sigla}"
	anoToken   = "#{ano}"
)

// Context carries the values substituted into a template.
type Context struct {
	// Seq is the sequence value within the series' reset period.
	Seq int64

	// Sigla is the series acronym. Empty is valid.
	Sigla string

	// Year is the calendar year of the allocation.
	Year int
}

// Render substitutes all tokens in template with values from ctx.
// Deterministic: identical inputs always produce identical output.
func Render(template string, ctx Context) string {
	out := seqToken.ReplaceAllStringFunc(template, func(match string) string {
		sub := seqToken.FindStringSubmatch(match)
		width, err := strconv.Atoi(sub[1])
		if err != nil {
			return match
		}
		// No truncation: seq wider than the pad width renders in full.
		return fmt.Sprintf("%0*d", width, ctx.Seq)
	})
	out = strings.ReplaceAll(out, siglaToken, ctx.Sigla)
	out = strings.ReplaceAll(out, anoToken, fmt.Sprintf("%04d", ctx.Year))
	return out
}
