package weather

import (
	"context"
)

// Provider abstracts a current-conditions source (e.g. Dark Sky, Open-Meteo).
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, lat, lon float64) (Snapshot, error)
}

// DirectoryProvider abstracts the air-quality location directory (e.g. OpenAQ).
type DirectoryProvider interface {
	Name() string
	ListCountries(ctx context.Context) ([]CountryRecord, error)
	ListLocations(ctx context.Context, countryCode string, limit int) ([]LocationRecord, error)
}

// SnapshotPublisher receives every successfully fetched snapshot.
type SnapshotPublisher interface {
	Publish(ctx context.Context, loc *Location) error
}
