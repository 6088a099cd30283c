package shared

import (
	"strings"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDs
// ══════════════════════════════════════════════════════════════════════════════

// NewID returns a new random identifier.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id is a well-formed UUID.
func IsValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// RequireID validates id and returns a domain validation error naming field.
func RequireID(domain, op, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewDomainError(domain, op, ErrEmptyValue, field+" is required")
	}
	if !IsValidID(id) {
		return NewDomainError(domain, op, ErrInvalidID, field+" must be a UUID")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REGIONS
// ══════════════════════════════════════════════════════════════════════════════

// Region is a home-region tag such as a Kenyan county ("nairobi", "mombasa").
type Region string

// NormalizeRegion lowercases and trims a region tag.
func NormalizeRegion(s string) Region {
	return Region(strings.ToLower(strings.TrimSpace(s)))
}

// String returns the region tag.
func (r Region) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGINATION
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page holds pagination parameters.
type Page struct {
	Limit  int
	Offset int
}

// NewPage clamps limit and offset into the allowed range.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
