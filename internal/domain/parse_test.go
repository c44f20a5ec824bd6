package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKilled = "K: Killed"

func TestParseRecord(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		rec := ParseRecord(map[string]string{
			FieldLatitude:   "35.9132",
			FieldLongitude:  "-79.0558",
			FieldCrashYear:  "2012",
			FieldCrashMonth: "March",
			FieldCrashHour:  "17",
			FieldBikeInjury: testKilled,
			FieldCrashSevr:  "K: Killed",
			FieldRdSurface:  " Smooth Asphalt ",
			FieldSpeedLimit: "30 - 35  MPH",
			FieldCrashAlcoh: "No",
			FieldHitRun:     "Yes",
			FieldLightCond:  "Daylight",
		})

		require.NotNil(t, rec.Latitude)
		require.NotNil(t, rec.Longitude)
		assert.Equal(t, 35.9132, *rec.Latitude)
		assert.Equal(t, -79.0558, *rec.Longitude)
		assert.Equal(t, 2012, rec.Year)
		assert.Equal(t, "March", rec.Month)
		require.NotNil(t, rec.Hour)
		assert.Equal(t, 17, *rec.Hour)
		assert.Equal(t, SeverityKilled, rec.BikeInjury)
		assert.Equal(t, "Smooth Asphalt", rec.RdSurface)
		assert.Equal(t, "30 - 35  MPH", rec.SpeedLimit, "inner whitespace is preserved")
		assert.Equal(t, "Yes", rec.HitRun)
	})

	t.Run("missing and null markers", func(t *testing.T) {
		rec := ParseRecord(map[string]string{
			FieldLatitude:   "",
			FieldLongitude:  "NaN",
			FieldCrashYear:  "NA",
			FieldCrashHour:  "",
			FieldRdSurface:  "NA",
			FieldCrashMonth: "Smarch",
		})

		assert.Nil(t, rec.Latitude)
		assert.Nil(t, rec.Longitude)
		assert.Zero(t, rec.Year)
		assert.Nil(t, rec.Hour)
		assert.Empty(t, rec.RdSurface)
		assert.Empty(t, rec.Month)
	})
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *int
	}{
		{"midnight", "0", intPtr(0)},
		{"float form", "13.0", intPtr(13)},
		{"last hour", "23", intPtr(23)},
		{"out of range", "24", nil},
		{"negative", "-1", nil},
		{"fractional", "7.5", nil},
		{"garbage", "noon", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHour(tt.in))
		})
	}
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 2015, parseYear("2015"))
	assert.Equal(t, 2015, parseYear("2015.0"))
	assert.Zero(t, parseYear("2015.5"))
	assert.Zero(t, parseYear(""))
}

func TestNormalizeMonth(t *testing.T) {
	assert.Equal(t, "January", normalizeMonth("january"))
	assert.Equal(t, "December", normalizeMonth(" DECEMBER "))
	assert.Empty(t, normalizeMonth("Dec"))
}

func TestCrashRecord_Value(t *testing.T) {
	rec := CrashRecord{Year: 2010, Hour: intPtr(0), Month: "May", RdFeature: "Intersection"}

	v, ok := rec.Value(FieldCrashHour)
	assert.True(t, ok)
	assert.Equal(t, "0", v)

	v, ok = rec.Value(FieldCrashYear)
	assert.True(t, ok)
	assert.Equal(t, "2010", v)

	_, ok = rec.Value(FieldSpeedLimit)
	assert.False(t, ok, "empty value is missing")

	_, ok = rec.Value("NoSuchColumn")
	assert.False(t, ok)

	_, ok = rec.Coord(FieldLatitude)
	assert.False(t, ok)
}

func TestSortSeverities(t *testing.T) {
	got := []Severity{"Z: Other", SeverityKilled, SeverityUnknown, SeverityNone, "A: Odd"}
	SortSeverities(got)
	assert.Equal(t, []Severity{SeverityNone, SeverityKilled, SeverityUnknown, "A: Odd", "Z: Other"}, got)
}

func TestMonthIndex(t *testing.T) {
	assert.Equal(t, 1, MonthIndex("January"))
	assert.Equal(t, 12, MonthIndex("December"))
	assert.Zero(t, MonthIndex("Any"))
}

func intPtr(v int) *int { return &v }
