package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParseRecord builds a CrashRecord from one row keyed by column name.
// Unparseable numeric cells become missing values rather than errors so that a
// single bad cell only excludes the record from the views that need that column.
func ParseRecord(fields map[string]string) CrashRecord {
	return CrashRecord{
		Latitude:  parseFloatOrNil(fields[FieldLatitude]),
		Longitude: parseFloatOrNil(fields[FieldLongitude]),

		Year:  parseYear(fields[FieldCrashYear]),
		Month: normalizeMonth(fields[FieldCrashMonth]),
		Hour:  parseHour(fields[FieldCrashHour]),

		BikeInjury: Severity(cell(fields[FieldBikeInjury])),
		CrashSevr:  Severity(cell(fields[FieldCrashSevr])),

		RdSurface:  cell(fields[FieldRdSurface]),
		SpeedLimit: cell(fields[FieldSpeedLimit]),
		RdFeature:  cell(fields[FieldRdFeature]),
		CrashAlcoh: cell(fields[FieldCrashAlcoh]),
		HitRun:     cell(fields[FieldHitRun]),
		LightCond:  cell(fields[FieldLightCond]),
		BikePos:    cell(fields[FieldBikePos]),
		TraffCntrl: cell(fields[FieldTraffCntrl]),
		BikeAlcFlg: cell(fields[FieldBikeAlcFlg]),
		BikeSex:    cell(fields[FieldBikeSex]),
		RuralUrban: cell(fields[FieldRuralUrban]),
	}
}

// cell trims a raw value and maps the dataset's null markers to "".
func cell(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "NA", "NaN", "nan":
		return ""
	}
	return s
}

// parseFloatOrNil parses a decimal, returning nil for empty, null or non-finite input.
func parseFloatOrNil(s string) *float64 {
	s = cell(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseYear accepts "2012" and the float form "2012.0" some exports produce.
func parseYear(s string) int {
	f := parseFloatOrNil(s)
	if f == nil || *f < 1 || *f != math.Trunc(*f) {
		return 0
	}
	return int(*f)
}

func parseHour(s string) *int {
	f := parseFloatOrNil(s)
	if f == nil || *f != math.Trunc(*f) || *f < 0 || *f > 23 {
		return nil
	}
	h := int(*f)
	return &h
}

// normalizeMonth canonicalizes the month name's case; unknown names are dropped.
func normalizeMonth(s string) string {
	s = cell(s)
	for _, m := range Months {
		if strings.EqualFold(m, s) {
			return m
		}
	}
	return ""
}
