// Package annotation decodes transcript-level consequence annotations packed
// into a single INFO value (VEP CSQ, SnpEff ANN, legacy SnpEff EFF). The
// sub-field layout of each encoding is declared in the input header, so a
// Registry must be populated from the header before any record is decoded.
package annotation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownEncoding reports an annotation INFO field this package cannot
// decompose. This is fatal at startup: without the sub-field layout no record
// can be transformed.
var ErrUnknownEncoding = errors.New("unknown annotation encoding")

// Encoding identifies one supported annotation convention.
type Encoding string

const (
	CSQ Encoding = "CSQ" // Ensembl VEP
	ANN Encoding = "ANN" // SnpEff >= 4.1
	EFF Encoding = "EFF" // legacy SnpEff
)

// Encodings lists the supported encodings in decode-priority order. The
// transform walks them in this order, so candidate ordinals (and therefore
// severity tie-breaks) are deterministic.
var Encodings = []Encoding{CSQ, ANN, EFF}

// IsEncoding reports whether id names a supported annotation encoding. Such
// INFO ids are reserved and excluded from ordinary column inference.
func IsEncoding(id string) bool {
	switch Encoding(id) {
	case CSQ, ANN, EFF:
		return true
	}
	return false
}

// Registry holds the ordered sub-field names declared in the header for each
// encoding present in the input. Immutable once populated; safe to share
// across transform workers without locking.
type Registry struct {
	subfields map[Encoding][]string
}

func NewRegistry() *Registry {
	return &Registry{subfields: map[Encoding][]string{}}
}

var annSplit = regexp.MustCompile(`\s*\|\s*`)
var csqSplit = regexp.MustCompile(`\||\(`)

// Register parses the header Description clause for the given encoding into
// its ordered sub-field name list. The format differs slightly per encoding
// but each declares its layout after the first ':', bar/paren delimited:
//
//	ANN: "Functional annotations: 'Allele | Annotation | ...'"
//	CSQ: "Consequence annotations from Ensembl VEP. Format: Allele|Consequence|..."
//	EFF: "Predicted effects ... Format: 'Effect ( Effect_Impact | ... )'"
func (r *Registry) Register(id, description string) error {
	desc := strings.Trim(description, `" `)
	_, layout, ok := strings.Cut(desc, ":")
	if !ok {
		return fmt.Errorf("annotation: %s description has no layout clause: %q", id, description)
	}

	var parts []string
	switch Encoding(id) {
	case ANN:
		for _, p := range annSplit.Split(strings.Trim(layout, `" '`), -1) {
			parts = append(parts, strings.Trim(p, `"'`))
		}
	case CSQ, EFF:
		for _, p := range csqSplit.Split(strings.TrimSpace(layout), -1) {
			p = strings.Trim(p, ` [])'("`)
			if p != "" {
				parts = append(parts, p)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEncoding, id)
	}
	r.subfields[Encoding(id)] = parts
	return nil
}

// Subfields returns the ordered sub-field names for an encoding, or nil when
// the encoding was not declared in the header.
func (r *Registry) Subfields(id Encoding) []string { return r.subfields[id] }

// Has reports whether the encoding was registered.
func (r *Registry) Has(id Encoding) bool {
	_, ok := r.subfields[id]
	return ok
}
