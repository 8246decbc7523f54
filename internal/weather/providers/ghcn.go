package providers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

// DefaultGHCNBaseURL is the anonymous HTTPS endpoint of the NOAA GHCN-Daily
// by-station CSV files.
const DefaultGHCNBaseURL = "https://noaa-ghcn-pds.s3.amazonaws.com/csv/by_station"

// GHCNOptions configures a GHCNProvider.
type GHCNOptions struct {
	BaseURL    string
	MaxRetries int
	// RateLimit is the number of requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// GHCNProvider implements the weather.Source interface for GHCN-Daily.
type GHCNProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGHCNProvider(client *http.Client, opts GHCNOptions) *GHCNProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGHCNBaseURL
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &GHCNProvider{
		name:    "ghcn",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      opts.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
			Limiter: limiter,
		},
		circuit: newBreaker("ghcn"),
	}
}

func (p *GHCNProvider) Name() string {
	return p.name
}

func (p *GHCNProvider) FetchStation(ctx context.Context, stationID string) (weather.Dataset, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return weather.Dataset{}, fmt.Errorf("ghcn: station id is required")
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/%s.csv", p.baseURL, url.PathEscape(stationID))
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Dataset{}, fmt.Errorf("%w: ghcn %s: %w", weather.ErrSourceUnavailable, stationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return weather.Dataset{}, fmt.Errorf("%w: %s", weather.ErrStationNotFound, stationID)
	}

	ds, err := DecodeCSV(resp.Body, stationID)
	if err != nil {
		return weather.Dataset{}, fmt.Errorf("%w: ghcn %s: %w", weather.ErrSourceUnavailable, stationID, err)
	}
	return ds, nil
}

// columns holds the positions of the fields we read from a GHCN CSV record.
type columns struct {
	date, element, value int
}

func (c columns) width() int {
	return max(c.date, c.element, c.value) + 1
}

// positional is the column layout of header-less GHCN files:
// ID,DATE,ELEMENT,DATA_VALUE,M_FLAG,Q_FLAG,S_FLAG,OBS_TIME.
var positional = columns{date: 1, element: 2, value: 3}

// headerColumns locates the columns by name. ok is false when the record is
// not a header.
func headerColumns(record []string) (columns, bool) {
	c := columns{date: -1, element: -1, value: -1}
	for i, name := range record {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "DATE":
			c.date = i
		case "ELEMENT":
			c.element = i
		case "DATA_VALUE":
			c.value = i
		}
	}
	if c.date < 0 || c.element < 0 || c.value < 0 {
		return columns{}, false
	}
	return c, true
}

// DecodeCSV reads a GHCN-Daily by-station CSV. Only TMAX and TMIN rows are
// kept; rows that cannot be decoded are skipped and counted.
func DecodeCSV(r io.Reader, stationID string) (weather.Dataset, error) {
	ds := weather.Dataset{StationID: stationID}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	cols := positional
	first := true

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				ds.SkippedRows++
				continue
			}
			return weather.Dataset{}, err
		}

		if first {
			first = false
			if c, ok := headerColumns(record); ok {
				cols = c
				continue
			}
		}

		if len(record) < cols.width() {
			ds.SkippedRows++
			continue
		}
		el, ok := weather.ParseElement(record[cols.element])
		if !ok {
			continue
		}
		obs, err := weather.ParseObservation(record[cols.date], el, record[cols.value])
		if err != nil {
			ds.SkippedRows++
			continue
		}
		ds.Observations = append(ds.Observations, obs)
	}

	return ds, nil
}
