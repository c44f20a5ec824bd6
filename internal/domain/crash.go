package domain

import (
	"strconv"

	"github.com/golang/geo/r2"
)

// Column names used by the explorer.
const (
	FieldLatitude   = "Latitude"
	FieldLongitude  = "Longitude"
	FieldCrashYear  = "CrashYear"
	FieldCrashMonth = "CrashMonth"
	FieldCrashHour  = "CrashHour"
	FieldBikeInjury = "BikeInjury"
	FieldCrashSevr  = "CrashSevr"
	FieldRdSurface  = "RdSurface"
	FieldSpeedLimit = "SpeedLimit"
	FieldCrashAlcoh = "CrashAlcoh"
	FieldHitRun     = "HitRun"
	FieldLightCond  = "LightCond"
	FieldBikePos    = "BikePos"
	FieldTraffCntrl = "TraffCntrl"
	FieldRdFeature  = "RdFeature"
	FieldBikeAlcFlg = "BikeAlcFlg"
	FieldBikeSex    = "BikeSex"
	FieldRuralUrban = "RuralUrban"
)

// Fields lists every column the explorer reads, in file order of the DOT extract.
var Fields = []string{
	FieldLatitude, FieldLongitude,
	FieldCrashYear, FieldCrashMonth, FieldCrashHour,
	FieldBikeInjury, FieldCrashSevr,
	FieldRdSurface, FieldSpeedLimit, FieldRdFeature,
	FieldCrashAlcoh, FieldHitRun, FieldLightCond, FieldBikePos, FieldTraffCntrl,
	FieldBikeAlcFlg, FieldBikeSex, FieldRuralUrban,
}

// CrashRecord is one crash event. Records are immutable once loaded; filters and
// aggregations always build new slices instead of editing records in place.
type CrashRecord struct {
	Latitude  *float64
	Longitude *float64

	Year  int    // 0 when missing
	Month string // "" when missing
	Hour  *int

	BikeInjury Severity
	CrashSevr  Severity

	RdSurface  string
	SpeedLimit string
	RdFeature  string
	CrashAlcoh string
	HitRun     string
	LightCond  string
	BikePos    string
	TraffCntrl string
	BikeAlcFlg string
	BikeSex    string
	RuralUrban string
}

// Value returns the string form of a categorical column. The second result is false
// when the column is unknown or the value is missing for this record.
func (r CrashRecord) Value(field string) (string, bool) {
	var v string
	switch field {
	case FieldCrashYear:
		if r.Year == 0 {
			return "", false
		}
		return strconv.Itoa(r.Year), true
	case FieldCrashHour:
		if r.Hour == nil {
			return "", false
		}
		return strconv.Itoa(*r.Hour), true
	case FieldCrashMonth:
		v = r.Month
	case FieldBikeInjury:
		v = string(r.BikeInjury)
	case FieldCrashSevr:
		v = string(r.CrashSevr)
	case FieldRdSurface:
		v = r.RdSurface
	case FieldSpeedLimit:
		v = r.SpeedLimit
	case FieldRdFeature:
		v = r.RdFeature
	case FieldCrashAlcoh:
		v = r.CrashAlcoh
	case FieldHitRun:
		v = r.HitRun
	case FieldLightCond:
		v = r.LightCond
	case FieldBikePos:
		v = r.BikePos
	case FieldTraffCntrl:
		v = r.TraffCntrl
	case FieldBikeAlcFlg:
		v = r.BikeAlcFlg
	case FieldBikeSex:
		v = r.BikeSex
	case FieldRuralUrban:
		v = r.RuralUrban
	default:
		return "", false
	}
	return v, v != ""
}

// Coord returns a numeric coordinate column.
func (r CrashRecord) Coord(field string) (float64, bool) {
	var p *float64
	switch field {
	case FieldLatitude:
		p = r.Latitude
	case FieldLongitude:
		p = r.Longitude
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ProjectedPoint is a record placed on the Web-Mercator plane (meters).
type ProjectedPoint struct {
	Record CrashRecord
	XY     r2.Point
}
