package domain

// Any is the filter value that disables a filter.
const Any = "Any"

// Months in calendar order. Grouping always follows this order, never lexical order.
var Months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthIndex returns 1..12 for a month name, or 0 when name is not a month.
func MonthIndex(name string) int {
	for i, m := range Months {
		if m == name {
			return i + 1
		}
	}
	return 0
}

// Choice sets offered to the filter controls.
var (
	YesNoChoices = []string{Any, "Yes", "No"}

	LightCondChoices = []string{
		Any, "Daylight", "Dark - Lighted Roadway", "Dark - Roadway Not Lighted", "Dusk", "Dawn",
	}

	BikePosChoices = []string{
		Any, "Travel Lane", "Sidewalk / Crosswalk / Driveway Crossing",
		"Bike Lane / Paved Shoulder", "Non-Roadway", "Unknown",
	}

	TraffCntrlChoices = []string{
		Any, "No Control Present", "Stop Sign", "Stop And Go Signal",
		"Double Yellow Line, No Passing Zone", "Missing",
	}

	SpeedLimitChoices = []string{
		Any, "5 - 15 MPH", "20 - 25  MPH", "30 - 35  MPH", "40 - 45  MPH", "50 - 55  MPH",
	}

	MonthChoices = append([]string{Any}, Months[:]...)
)

// HourAny is the hour slider position meaning "any hour".
const HourAny = -1

// TwoState reports whether field only takes "Yes" or "No".
func TwoState(field string) bool {
	return field == FieldCrashAlcoh || field == FieldHitRun
}
