package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "20060102"

// ParseDate parses an 8-digit GHCN date (YYYYMMDD) as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q: want 8 digits", s)
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseElement maps a raw element code to a temperature element. ok is false
// for every element this service does not chart (PRCP, SNOW, ...).
func ParseElement(s string) (Element, bool) {
	switch Element(strings.TrimSpace(s)) {
	case ElementTMAX:
		return ElementTMAX, true
	case ElementTMIN:
		return ElementTMIN, true
	default:
		return "", false
	}
}

// ParseObservation decodes one row. The element must already be known to be a
// temperature element.
func ParseObservation(date string, element Element, value string) (Observation, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Observation{}, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return Observation{}, fmt.Errorf("invalid value %q: %w", value, err)
	}
	return Observation{Date: d, Element: element, Value: v}, nil
}
