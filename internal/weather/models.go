package weather

import (
	"encoding/json"
	"time"
)

// Element identifies the observation type of a GHCN-Daily row.
type Element string

const (
	ElementTMAX Element = "TMAX"
	ElementTMIN Element = "TMIN"
)

// Observation is a single raw reading. Value is in tenths of a degree Celsius.
type Observation struct {
	Date    time.Time // midnight UTC
	Element Element
	Value   int
}

// CalendarKey groups observations by day of year. The leap day is never a key.
type CalendarKey struct {
	Month time.Month
	Day   int
}

// KeyOf returns the calendar key of t.
func KeyOf(t time.Time) CalendarKey {
	return CalendarKey{Month: t.Month(), Day: t.Day()}
}

// IsLeapDay reports whether the key is February 29.
func (k CalendarKey) IsLeapDay() bool {
	return k.Month == time.February && k.Day == 29
}

// Date wraps time.Time but marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// DailyStatRow is one calendar day of the target year. Temperatures are in
// degrees Celsius; a nil field means its group had no data.
type DailyStatRow struct {
	Date      Date      `json:"date"`
	ActualMin *float64  `json:"actual_min"`
	ActualMax *float64  `json:"actual_max"`
	AvgMin    *float64  `json:"avg_min"`
	AvgMax    *float64  `json:"avg_max"`
	RecordMin *float64  `json:"record_min"`
	RecordMax *float64  `json:"record_max"`
	Left      time.Time `json:"left"`
	Right     time.Time `json:"right"`
}

// Bands is the result of a band computation for one station and year.
type Bands struct {
	StationID   string         `json:"stationId"`
	Year        int            `json:"year"`
	Rows        []DailyStatRow `json:"rows"`
	HasMax      bool           `json:"hasMax"`
	HasMin      bool           `json:"hasMin"`
	ActualDays  int            `json:"actualDays"`
	SkippedRows int            `json:"skippedRows"`
}

// NoData reports whether the station has no observations in the target year.
// Historical rows may still be present.
func (b Bands) NoData() bool {
	return b.ActualDays == 0
}

// MarshalJSON adds the derived noData flag.
func (b Bands) MarshalJSON() ([]byte, error) {
	type alias Bands
	return json.Marshal(struct {
		alias
		NoData bool `json:"noData"`
	}{alias: alias(b), NoData: b.NoData()})
}
