package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

const sampleCSV = `ID,DATE,ELEMENT,DATA_VALUE,M_FLAG,Q_FLAG,S_FLAG,OBS_TIME
USC00118740,20230101,TMAX,106,,,7,0700
USC00118740,20230101,TMIN,-22,,,7,0700
USC00118740,20230101,PRCP,0,,,7,0700
USC00118740,2023010,TMAX,100,,,7,0700
USC00118740,20230102,TMAX,abc,,,7,0700
USC00118740,20230102
USC00118740,20230102,TMIN,-5,,,7,0700
`

func newTestProvider(url string) *GHCNProvider {
	p := NewGHCNProvider(&http.Client{Timeout: 2 * time.Second}, GHCNOptions{BaseURL: url, MaxRetries: 2})
	p.httpCfg.Backoff.InitialInterval = time.Millisecond
	p.httpCfg.Backoff.MaxInterval = 5 * time.Millisecond
	return p
}

func TestDecodeCSV(t *testing.T) {
	ds, err := DecodeCSV(strings.NewReader(sampleCSV), "USC00118740")
	require.NoError(t, err)

	assert.Equal(t, "USC00118740", ds.StationID)
	require.Len(t, ds.Observations, 3)
	assert.Equal(t, 3, ds.SkippedRows)

	assert.Equal(t, weather.ElementTMAX, ds.Observations[0].Element)
	assert.Equal(t, 106, ds.Observations[0].Value)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), ds.Observations[0].Date)
	assert.Equal(t, -5, ds.Observations[2].Value)
}

func TestDecodeCSV_WithoutHeader(t *testing.T) {
	body := "USW00013874,19810101,TMAX,72,,,X,\nUSW00013874,19810101,TMIN,-11,,,X,\n"

	ds, err := DecodeCSV(strings.NewReader(body), "USW00013874")
	require.NoError(t, err)

	assert.Len(t, ds.Observations, 2)
	assert.Zero(t, ds.SkippedRows)
}

func TestGHCNProvider_FetchStation(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL + "/csv/by_station/")

	ds, err := p.FetchStation(context.Background(), "USC00118740")
	require.NoError(t, err)

	assert.Equal(t, "/csv/by_station/USC00118740.csv", gotPath)
	assert.Len(t, ds.Observations, 3)
	assert.Equal(t, "ghcn", p.Name())
}

func TestGHCNProvider_NotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	_, err := p.FetchStation(context.Background(), "XXX00000000")
	assert.ErrorIs(t, err, weather.ErrStationNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404 is not retried")
}

func TestGHCNProvider_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	ds, err := p.FetchStation(context.Background(), "USC00118740")
	require.NoError(t, err)
	assert.Len(t, ds.Observations, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGHCNProvider_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	_, err := p.FetchStation(context.Background(), "USC00118740")
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrSourceUnavailable)
	assert.ErrorIs(t, err, errServerError)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "one attempt plus two retries")
}

func TestGHCNProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.FetchStation(ctx, "USC00118740")
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGHCNProvider_RequiresStationID(t *testing.T) {
	p := newTestProvider("http://127.0.0.1:1")

	_, err := p.FetchStation(context.Background(), "  ")
	assert.Error(t, err)
}
