package weather

import "time"

// dayStat accumulates one element's values for one calendar day across years.
type dayStat struct {
	valid bool
	min   int
	max   int
	sum   int64
	count int
}

func (s *dayStat) add(v int) {
	if !s.valid || v < s.min {
		s.min = v
	}
	if !s.valid || v > s.max {
		s.max = v
	}
	s.valid = true
	s.sum += int64(v)
	s.count++
}

func (s *dayStat) mean() float64 {
	return float64(s.sum) / float64(s.count)
}

// tenths converts a stored tenths-of-a-degree value to degrees.
func tenths(v float64) *float64 {
	c := v / 10
	return &c
}

// ComputeDailyBands builds one row per calendar day of targetYear, in calendar
// order, from a station's full history. February 29 is dropped from every
// series, so a leap target year still yields at most 365 rows and the leap
// day never contributes to another day's statistics.
//
// Historical statistics cover every year present, the target year included.
// Actual values come from the target year only and are joined by calendar
// day: a day without actual data keeps its historical fields and leaves the
// actual fields nil. Days for which no series has data are omitted.
func ComputeDailyBands(observations []Observation, targetYear int) []DailyStatRow {
	hist := map[Element]map[CalendarKey]*dayStat{
		ElementTMAX: {},
		ElementTMIN: {},
	}
	actual := map[Element]map[CalendarKey]int{
		ElementTMAX: {},
		ElementTMIN: {},
	}

	for _, o := range observations {
		byDay, ok := hist[o.Element]
		if !ok {
			continue
		}
		k := KeyOf(o.Date)
		if k.IsLeapDay() {
			continue
		}
		st, ok := byDay[k]
		if !ok {
			st = &dayStat{}
			byDay[k] = st
		}
		st.add(o.Value)

		if o.Date.Year() == targetYear {
			actual[o.Element][k] = o.Value
		}
	}

	rows := make([]DailyStatRow, 0, 365)
	start := time.Date(targetYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() == targetYear; d = d.AddDate(0, 0, 1) {
		k := KeyOf(d)
		if k.IsLeapDay() {
			continue
		}

		row := DailyStatRow{
			Date:  Date{d},
			Left:  d.Add(-12 * time.Hour),
			Right: d.Add(12 * time.Hour),
		}
		if st, ok := hist[ElementTMIN][k]; ok {
			row.RecordMin = tenths(float64(st.min))
			row.AvgMin = tenths(st.mean())
		}
		if st, ok := hist[ElementTMAX][k]; ok {
			row.RecordMax = tenths(float64(st.max))
			row.AvgMax = tenths(st.mean())
		}
		if v, ok := actual[ElementTMIN][k]; ok {
			row.ActualMin = tenths(float64(v))
		}
		if v, ok := actual[ElementTMAX][k]; ok {
			row.ActualMax = tenths(float64(v))
		}

		if row.RecordMin == nil && row.RecordMax == nil {
			// Actual values are part of the history, so no history means no data at all.
			continue
		}
		rows = append(rows, row)
	}

	return rows
}

// NewBands computes the bands of ds for year and summarises what was found.
func NewBands(ds Dataset, year int) Bands {
	b := Bands{
		StationID:   ds.StationID,
		Year:        year,
		Rows:        ComputeDailyBands(ds.Observations, year),
		SkippedRows: ds.SkippedRows,
	}
	for _, r := range b.Rows {
		if r.RecordMax != nil {
			b.HasMax = true
		}
		if r.RecordMin != nil {
			b.HasMin = true
		}
		if r.ActualMin != nil || r.ActualMax != nil {
			b.ActualDays++
		}
	}
	return b
}
