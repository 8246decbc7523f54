package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-bands-dashboard/internal/logger"
)

// DefaultFetchTimeout bounds a shared station download.
const DefaultFetchTimeout = 2 * time.Minute

// Service loads station histories through the cache and computes bands.
type Service struct {
	store        Store
	source       Source
	group        singleflight.Group
	fetchTimeout time.Duration
	log          logger.Logger
}

// NewService creates a new Service.
func NewService(store Store, source Source, log logger.Logger) *Service {
	return &Service{
		store:        store,
		source:       source,
		fetchTimeout: DefaultFetchTimeout,
		log:          logger.Component(log, "weather_service"),
	}
}

// SetFetchTimeout changes the bound of a shared station download. d <= 0
// restores the default.
func (s *Service) SetFetchTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultFetchTimeout
	}
	s.fetchTimeout = d
}

// Load returns the cached history of a station, fetching it on a miss.
func (s *Service) Load(ctx context.Context, stationID string) (Dataset, error) {
	if ds, err := s.store.GetDataset(stationID); err == nil {
		return ds, nil
	}
	return s.fetch(ctx, stationID)
}

// Refresh fetches a station unconditionally and replaces the cached copy.
func (s *Service) Refresh(ctx context.Context, stationID string) error {
	_, err := s.fetch(ctx, stationID)
	return err
}

// fetch collapses concurrent fetches of one station into a single request.
// The request runs detached from any one caller, so a caller giving up does
// not fail the others; each caller still stops waiting when its ctx ends.
func (s *Service) fetch(ctx context.Context, stationID string) (Dataset, error) {
	if s.source == nil {
		return Dataset{}, fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}

	ch := s.group.DoChan(stationID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		ds, err := s.source.FetchStation(fetchCtx, stationID)
		if err != nil {
			return Dataset{}, err
		}
		if ds.SkippedRows > 0 {
			s.log.Warnf("skipped %d malformed rows for station %s", ds.SkippedRows, stationID)
		}
		s.store.SaveDataset(ds)
		s.log.WithFields(map[string]interface{}{
			"station":      stationID,
			"observations": len(ds.Observations),
			"source":       s.source.Name(),
		}).Info("station history loaded")
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return Dataset{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, stationID, ctx.Err())
	case res := <-ch:
		if res.Shared {
			s.log.Debugf("shared in-flight fetch for station %s", stationID)
		}
		if res.Err != nil {
			return Dataset{}, res.Err
		}
		return res.Val.(Dataset), nil
	}
}

// DailyBands computes the per-day bands of a station for year. A station the
// source does not know yields empty bands rather than an error; transport
// failures are returned.
func (s *Service) DailyBands(ctx context.Context, stationID string, year int) (Bands, error) {
	ds, err := s.Load(ctx, stationID)
	if err != nil {
		if errors.Is(err, ErrStationNotFound) {
			s.log.Warnf("no data for station %s", stationID)
			return Bands{StationID: stationID, Year: year}, nil
		}
		return Bands{}, fmt.Errorf("load station %s: %w", stationID, err)
	}

	b := NewBands(ds, year)
	if b.ActualDays == 0 {
		s.log.Infof("station %s has no observations in %d", stationID, year)
	}
	return b, nil
}
