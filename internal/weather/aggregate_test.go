package weather

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// yearOf emits one observation per day of year (Feb 29 included in leap years).
func yearOf(year int, el Element, value func(d time.Time) int) []Observation {
	var out []Observation
	for d := day(year, time.January, 1); d.Year() == year; d = d.AddDate(0, 0, 1) {
		out = append(out, Observation{Date: d, Element: el, Value: value(d)})
	}
	return out
}

// station builds TMIN/TMAX histories where TMAX is always 100 tenths above TMIN.
func station(years ...int) []Observation {
	var out []Observation
	for _, y := range years {
		y := y
		minOf := func(d time.Time) int { return 20*(y%3) + d.YearDay()%11 - 40 }
		out = append(out, yearOf(y, ElementTMIN, minOf)...)
		out = append(out, yearOf(y, ElementTMAX, func(d time.Time) int { return minOf(d) + 100 })...)
	}
	return out
}

func findRow(t *testing.T, rows []DailyStatRow, m time.Month, d int) DailyStatRow {
	t.Helper()
	for _, r := range rows {
		if r.Date.Month() == m && r.Date.Day() == d {
			return r
		}
	}
	t.Fatalf("no row for %s %d", m, d)
	return DailyStatRow{}
}

func TestComputeDailyBands_FullYearHas365Rows(t *testing.T) {
	for _, year := range []int{2019, 2020} {
		rows := ComputeDailyBands(station(2018, 2019, 2020), year)

		require.Len(t, rows, 365, "year %d", year)
		prev := time.Time{}
		for _, r := range rows {
			assert.False(t, KeyOf(r.Date.Time).IsLeapDay())
			assert.Equal(t, year, r.Date.Year())
			assert.True(t, r.Date.After(prev), "rows must be in calendar order")
			prev = r.Date.Time
		}
		assert.Equal(t, day(year, time.January, 1), rows[0].Date.Time)
		assert.Equal(t, day(year, time.December, 31), rows[364].Date.Time)
	}
}

func TestComputeDailyBands_HistoricalOrdering(t *testing.T) {
	rows := ComputeDailyBands(station(2015, 2016, 2017, 2018), 2017)

	for _, r := range rows {
		require.NotNil(t, r.RecordMin)
		require.NotNil(t, r.AvgMin)
		require.NotNil(t, r.AvgMax)
		require.NotNil(t, r.RecordMax)
		assert.LessOrEqual(t, *r.RecordMin, *r.AvgMin, r.Date.String())
		assert.LessOrEqual(t, *r.AvgMin, *r.AvgMax, r.Date.String())
		assert.LessOrEqual(t, *r.AvgMax, *r.RecordMax, r.Date.String())
	}
}

func TestComputeDailyBands_Idempotent(t *testing.T) {
	obs := station(2021, 2022, 2023)

	first := ComputeDailyBands(obs, 2022)
	second := ComputeDailyBands(obs, 2022)

	assert.Equal(t, first, second)
}

func TestComputeDailyBands_CalendarJoin(t *testing.T) {
	obs := []Observation{
		{Date: day(2021, time.July, 4), Element: ElementTMIN, Value: 100},
		{Date: day(2022, time.July, 4), Element: ElementTMIN, Value: 200},
		{Date: day(2023, time.July, 4), Element: ElementTMIN, Value: 300},
		// Neighbouring days must not leak into July 4.
		{Date: day(2022, time.July, 3), Element: ElementTMIN, Value: -500},
		{Date: day(2023, time.July, 5), Element: ElementTMIN, Value: 900},
	}

	rows := ComputeDailyBands(obs, 2023)
	require.Len(t, rows, 3)

	r := findRow(t, rows, time.July, 4)
	require.NotNil(t, r.AvgMin)
	require.NotNil(t, r.RecordMin)
	require.NotNil(t, r.ActualMin)
	assert.InDelta(t, 20.0, *r.AvgMin, 1e-9)
	assert.InDelta(t, 10.0, *r.RecordMin, 1e-9)
	assert.InDelta(t, 30.0, *r.ActualMin, 1e-9)
	assert.Equal(t, day(2023, time.July, 3).Add(12*time.Hour), r.Left)
	assert.Equal(t, day(2023, time.July, 4).Add(12*time.Hour), r.Right)

	july3 := findRow(t, rows, time.July, 3)
	assert.Nil(t, july3.ActualMin, "2023-07-03 has no actual data")
	assert.InDelta(t, -50.0, *july3.RecordMin, 1e-9)
}

func TestComputeDailyBands_MissingElement(t *testing.T) {
	var obs []Observation
	for _, y := range []int{2022, 2023} {
		obs = append(obs, yearOf(y, ElementTMAX, func(d time.Time) int { return 250 })...)
	}

	b := NewBands(Dataset{StationID: "X", Observations: obs}, 2023)

	require.Len(t, b.Rows, 365)
	assert.True(t, b.HasMax)
	assert.False(t, b.HasMin)
	for _, r := range b.Rows {
		assert.Nil(t, r.ActualMin)
		assert.Nil(t, r.AvgMin)
		assert.Nil(t, r.RecordMin)
		require.NotNil(t, r.ActualMax)
		assert.InDelta(t, 25.0, *r.ActualMax, 1e-9)
	}

	raw, err := json.Marshal(b.Rows[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"record_min":null`)
	assert.Contains(t, string(raw), `"date":"2023-01-01"`)
}

func TestComputeDailyBands_UnitConversion(t *testing.T) {
	obs := []Observation{{Date: day(2023, time.March, 10), Element: ElementTMAX, Value: 205}}

	rows := ComputeDailyBands(obs, 2023)

	require.Len(t, rows, 1)
	assert.Equal(t, 20.5, *rows[0].ActualMax)
	assert.Equal(t, 20.5, *rows[0].RecordMax)
	assert.Equal(t, 20.5, *rows[0].AvgMax)
}

func TestComputeDailyBands_LeapDayExcluded(t *testing.T) {
	obs := station(2019, 2020)
	obs = append(obs,
		Observation{Date: day(2020, time.February, 29), Element: ElementTMAX, Value: 999},
		Observation{Date: day(2020, time.February, 29), Element: ElementTMIN, Value: -999},
	)
	without := ComputeDailyBands(station(2019, 2020), 2020)

	rows := ComputeDailyBands(obs, 2020)

	require.Len(t, rows, 365)
	for _, r := range rows {
		assert.False(t, r.Date.Month() == time.February && r.Date.Day() == 29)
	}
	assert.Equal(t, findRow(t, without, time.February, 28), findRow(t, rows, time.February, 28))
	assert.Equal(t, findRow(t, without, time.March, 1), findRow(t, rows, time.March, 1))
	assert.Less(t, *findRow(t, rows, time.March, 1).RecordMax, 99.9)
}

func TestComputeDailyBands_PartialYearIsDateAligned(t *testing.T) {
	obs := station(2021, 2022)
	// 2023 in progress: January through March only, values encode the date.
	for d := day(2023, time.January, 1); d.Before(day(2023, time.April, 1)); d = d.AddDate(0, 0, 1) {
		v := int(d.Month())*100 + d.Day()
		obs = append(obs,
			Observation{Date: d, Element: ElementTMAX, Value: v},
			Observation{Date: d, Element: ElementTMIN, Value: -v},
		)
	}

	b := NewBands(Dataset{Observations: obs}, 2023)

	require.Len(t, b.Rows, 365)
	assert.Equal(t, 90, b.ActualDays)

	mar1 := findRow(t, b.Rows, time.March, 1)
	require.NotNil(t, mar1.ActualMax)
	assert.InDelta(t, 30.1, *mar1.ActualMax, 1e-9)
	assert.InDelta(t, -30.1, *mar1.ActualMin, 1e-9)

	apr1 := findRow(t, b.Rows, time.April, 1)
	assert.Nil(t, apr1.ActualMax)
	assert.Nil(t, apr1.ActualMin)
	assert.NotNil(t, apr1.AvgMax, "historical fields stay populated")
}

func TestComputeDailyBands_NoData(t *testing.T) {
	b := NewBands(Dataset{StationID: "EMPTY"}, 2023)

	assert.Empty(t, b.Rows)
	assert.True(t, b.NoData())

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"noData":true`)
}

func TestComputeDailyBands_YearOutsideHistory(t *testing.T) {
	b := NewBands(Dataset{Observations: station(2021, 2022)}, 1981)

	require.Len(t, b.Rows, 365)
	assert.Zero(t, b.ActualDays)
	assert.Equal(t, 1981, b.Rows[0].Date.Year())
	assert.True(t, b.NoData())

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"noData":true`)
}
