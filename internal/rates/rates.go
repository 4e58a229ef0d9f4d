// Package rates resolves which configured rate rows are in force on a given
// day and enforces the one-active-row-per-key rule when rows are written.
package rates

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stwalsh4118/revenue/api/internal/models"
)

var (
	// ErrConfigNotFound means no active row exists for the requested key.
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrConfigConflict means a write would create a second active row for a key.
	ErrConfigConflict = errors.New("configuration conflicts with an active row")
	// ErrInvalidConfig means a row is missing fields required by its kind.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LookupError carries the kind and key of a failed lookup.
type LookupError struct {
	Kind models.RateKind
	Key  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: no active %s rate for %q", ErrConfigNotFound, e.Kind, e.Key)
}

// Unwrap lets errors.Is match ErrConfigNotFound.
func (e *LookupError) Unwrap() error {
	return ErrConfigNotFound
}

// Snapshot is the set of rate rows active on one day.
type Snapshot struct {
	asOf time.Time
	rows map[models.RateKind][]models.RateConfig
}

// NewSnapshot filters rows down to those active on asOf.
// Within each kind rows are ordered most recently effective first.
func NewSnapshot(rows []models.RateConfig, asOf time.Time) *Snapshot {
	s := &Snapshot{asOf: asOf, rows: make(map[models.RateKind][]models.RateConfig)}
	for _, r := range rows {
		if r.ActiveOn(asOf) {
			s.rows[r.Kind] = append(s.rows[r.Kind], r)
		}
	}
	for kind := range s.rows {
		list := s.rows[kind]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].EffectiveDate.After(list[j].EffectiveDate)
		})
	}
	return s
}

// AsOf returns the day the snapshot was taken for.
func (s *Snapshot) AsOf() time.Time {
	return s.asOf
}

// Land returns the active land rate for a classification.
func (s *Snapshot) Land(classification string) (*models.RateConfig, error) {
	return s.first(models.RateKindLand, classification, func(r *models.RateConfig) bool {
		return sameKey(r.Classification, classification)
	})
}

// Property returns the active building unit-cost row for a material and classification.
func (s *Snapshot) Property(material, classification string) (*models.RateConfig, error) {
	return s.first(models.RateKindProperty, material+"/"+classification, func(r *models.RateConfig) bool {
		return sameKey(r.Material, material) && sameKey(r.Classification, classification)
	})
}

// Tax returns the active tax percentage row for a tax name.
func (s *Snapshot) Tax(name string) (*models.RateConfig, error) {
	return s.byName(models.RateKindTax, name)
}

// Discount returns the active discount row for a discount name.
func (s *Snapshot) Discount(name string) (*models.RateConfig, error) {
	return s.byName(models.RateKindDiscount, name)
}

// Penalty returns the active penalty row for a penalty name.
func (s *Snapshot) Penalty(name string) (*models.RateConfig, error) {
	return s.byName(models.RateKindPenalty, name)
}

// Brackets returns every active building bracket for a classification.
func (s *Snapshot) Brackets(classification string) []models.RateConfig {
	var out []models.RateConfig
	for _, r := range s.rows[models.RateKindBuildingBracket] {
		if sameKey(r.Classification, classification) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Snapshot) byName(kind models.RateKind, name string) (*models.RateConfig, error) {
	return s.first(kind, name, func(r *models.RateConfig) bool {
		return sameKey(r.Name, name)
	})
}

func (s *Snapshot) first(kind models.RateKind, key string, match func(*models.RateConfig) bool) (*models.RateConfig, error) {
	for i := range s.rows[kind] {
		r := &s.rows[kind][i]
		if match(r) {
			return r, nil
		}
	}
	return nil, &LookupError{Kind: kind, Key: key}
}

func sameKey(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
