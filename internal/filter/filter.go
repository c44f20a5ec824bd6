// Package filter applies the explorer's categorical filter controls to crash records.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// ErrInvalidChoice is returned by Criteria.Validate for a value outside a field's choice set.
var ErrInvalidChoice = errors.New("invalid filter choice")

// Apply keeps the records whose field equals chosen. "Any" returns records as they are;
// a record with no value for field never matches. The input slice is never modified.
func Apply(records []domain.CrashRecord, field, chosen string) []domain.CrashRecord {
	if chosen == domain.Any {
		return records
	}
	out := make([]domain.CrashRecord, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.Value(field); ok && v == chosen {
			out = append(out, rec)
		}
	}
	return out
}

// Criteria is the full set of filter controls. Start from NewCriteria: the zero
// value's Hour selects midnight rather than any hour.
type Criteria struct {
	Alcohol    string
	HitRun     string
	LightCond  string
	BikePos    string
	TraffCntrl string
	SpeedLimit string
	RdFeature  string
	Month      string
	Hour       int // domain.HourAny or 0..23
}

// NewCriteria returns criteria with every control set to Any.
func NewCriteria() Criteria {
	return Criteria{
		Alcohol:    domain.Any,
		HitRun:     domain.Any,
		LightCond:  domain.Any,
		BikePos:    domain.Any,
		TraffCntrl: domain.Any,
		SpeedLimit: domain.Any,
		RdFeature:  domain.Any,
		Month:      domain.Any,
		Hour:       domain.HourAny,
	}
}

// Normalize maps empty controls to Any.
func (c Criteria) Normalize() Criteria {
	for _, s := range []*string{&c.Alcohol, &c.HitRun, &c.LightCond, &c.BikePos, &c.TraffCntrl, &c.SpeedLimit, &c.RdFeature, &c.Month} {
		if strings.TrimSpace(*s) == "" {
			*s = domain.Any
		}
	}
	return c
}

// Validate rejects values outside the enumerated choice sets. Free-text fields such as
// light condition are not restricted, matching the dataset's open vocabulary.
func (c Criteria) Validate() error {
	for _, p := range c.pairs() {
		if domain.TwoState(p.field) && !slices.Contains(domain.YesNoChoices, p.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidChoice, p.field, p.value)
		}
	}
	if !slices.Contains(domain.MonthChoices, c.Month) {
		return fmt.Errorf("%w: month %q", ErrInvalidChoice, c.Month)
	}
	if c.Hour < domain.HourAny || c.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidChoice, c.Hour)
	}
	return nil
}

// Apply runs every control in sequence. All predicates are independent equality tests,
// so order does not affect the result.
func (c Criteria) Apply(records []domain.CrashRecord) []domain.CrashRecord {
	out := records
	for _, p := range c.pairs() {
		out = Apply(out, p.field, p.value)
	}
	return out
}

// Key identifies the criteria: equal criteria produce equal keys and different
// criteria different keys, whatever the free-text values contain.
func (c Criteria) Key() string {
	var b strings.Builder
	for _, p := range c.pairs() {
		b.WriteString(p.field)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(p.value))
		b.WriteByte(';')
	}
	return b.String()
}

type pair struct{ field, value string }

func (c Criteria) pairs() []pair {
	hour := domain.Any
	if c.Hour != domain.HourAny {
		hour = strconv.Itoa(c.Hour)
	}
	return []pair{
		{domain.FieldCrashAlcoh, c.Alcohol},
		{domain.FieldHitRun, c.HitRun},
		{domain.FieldLightCond, c.LightCond},
		{domain.FieldBikePos, c.BikePos},
		{domain.FieldTraffCntrl, c.TraffCntrl},
		{domain.FieldSpeedLimit, c.SpeedLimit},
		{domain.FieldRdFeature, c.RdFeature},
		{domain.FieldCrashHour, hour},
		{domain.FieldCrashMonth, c.Month},
	}
}
