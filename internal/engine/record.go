package engine

// Record is one tracked birthday as stored in the config file.
// It carries no identity of its own; durable person ids are resolved by
// the identity package from the record's fingerprint and position.
type Record struct {
	// Name is the display name, trimmed and non-empty once validated.
	Name string

	// Month (1-12) and Day (1-31) of the recurring birthday.
	Month int
	Day   int

	// Year is the birth year, or zero when unknown.
	// Ages are never inferred for records without a year.
	Year int

	// Offsets lists how many days before the birthday a reminder fires
	// (0 = on the day). Normalized to a descending unique sequence.
	Offsets []int
}

// HasYear reports whether the birth year is known.
func (r Record) HasYear() bool {
	return r.Year != 0
}

// IsLeapDay reports whether the record falls on February 29.
func (r Record) IsLeapDay() bool {
	return r.Month == 2 && r.Day == 29
}

// HasOffset reports whether a reminder is configured for the given lead time.
func (r Record) HasOffset(days int) bool {
	for _, o := range r.Offsets {
		if o == days {
			return true
		}
	}
	return false
}

// AppConfig is the whole birthday config: global settings plus the ordered records.
type AppConfig struct {
	Timezone      string
	DailySendTime string
	LeapDayRule   LeapDayRule
	Birthdays     []Record
}
