// Package domain models the bicycle crash dataset.
//
// # Data Source
//
// Records come from the North Carolina DOT bicycle crash extract (about 11,000 rows,
// 2007–2018), distributed as a single delimited text file with one crash per row and a
// header naming each column. The explorer only reads the columns listed in [Fields];
// everything else is ignored.
//
// # Conventions
//
// Coordinates:
//
//	"Latitude" / "Longitude" in WGS-84 decimal degrees. Empty cells and cells that do
//	not parse as numbers are treated as missing, never as 0.
//
// Time:
//
//	CrashYear is a four digit year. CrashMonth is the English month name
//	("January".."December"). CrashHour is 0–23.
//
// Severity:
//
//	BikeInjury and CrashSevr use KABCO letters with a description, e.g. "K: Killed".
//	The five ranked levels are O < C < B < A < K; "Unknown Injury" sits outside the
//	ranking and is only shown by the severity histogram and small multiples.
//
// Categorical attributes:
//
//	Free text as exported by the DOT, e.g. SpeedLimit "30 - 35  MPH" (note the double
//	space), LightCond "Dark - Lighted Roadway". Values are compared after trimming
//	surrounding whitespace only. Two-state flags (CrashAlcoh, HitRun) hold "Yes" or "No".
//
// Missing values:
//
//	Empty cells, "NA" and "NaN" are treated as absent. Sentinels such as "Unknown" or
//	"Missing" are kept verbatim; the views that need to hide them do so explicitly.
package domain
