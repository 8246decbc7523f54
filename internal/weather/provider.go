package weather

import (
	"context"
	"errors"
)

var (
	// ErrStationNotFound is returned by a source that has no history for a station.
	ErrStationNotFound = errors.New("station not found")

	// ErrSourceUnavailable wraps transport failures, timeouts and an open circuit.
	ErrSourceUnavailable = errors.New("observation source unavailable")
)

// Dataset is what a source returns for one station.
type Dataset struct {
	StationID    string
	Observations []Observation
	// SkippedRows counts rows dropped because they could not be decoded.
	SkippedRows int
}

// Source abstracts the remote observation dataset (e.g. GHCN-Daily by station).
type Source interface {
	Name() string
	FetchStation(ctx context.Context, stationID string) (Dataset, error)
}

// Store is the contract the in-memory observation cache must satisfy.
type Store interface {
	SaveDataset(ds Dataset)
	GetDataset(stationID string) (Dataset, error)
}
