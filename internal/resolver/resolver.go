// Package resolver populates the address space on demand. Countries, locations
// and weather variables are created the first time a client references them,
// and weather values are refetched at read time once they are older than the
// configured interval.
package resolver

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/airquality-weather/internal/addrspace"
	"github.com/i474232898/airquality-weather/internal/metrics"
	"github.com/i474232898/airquality-weather/internal/nodeid"
	"github.com/i474232898/airquality-weather/internal/store"
	"github.com/i474232898/airquality-weather/internal/weather"
)

// FlagInitialize is the static variable created under every location. Looking
// it up is the conventional way for clients to request weather variables.
const FlagInitialize = "FlagInitialize"

const (
	descCountries      = "Organizes all the Country objects with their respective information"
	descCountry        = "Country object with attributes and locations information."
	descCountryName    = "The name of a country"
	descCountryCode    = "2 letters ISO code representing the Country Name"
	descCitiesNumber   = "Number of cities belonged to a country. It can be city or province"
	descLocationsCount = "Number of air quality locations reported for a country"
	descLocation       = "Location object containing weather information"
	descFlagInitialize = "Auxiliary variable to indicate when to download weather data for this location."
)

// Engine is the part of the address space the resolver writes to.
type Engine interface {
	AddObjectNode(ctx context.Context, spec addrspace.NodeSpec) error
	AddVariableNode(ctx context.Context, spec addrspace.NodeSpec) error
	AddDataSourceVariableNode(ctx context.Context, spec addrspace.NodeSpec) error
	SetLookupHook(hook addrspace.LookupHook)
}

// Resolver owns the entity cache and the upstream clients. All methods must
// run on the address space processing loop.
type Resolver struct {
	engine    Engine
	cache     *store.Cache
	directory weather.DirectoryProvider
	provider  weather.Provider
	publisher weather.SnapshotPublisher
	interval  time.Duration
	now       func() time.Time
	logger    *zap.SugaredLogger

	countries weather.State
	// busy is set while the resolver itself adds nodes. Node creation looks
	// up identifiers again, and those lookups must pass straight through.
	busy bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithPublisher mirrors every fetched snapshot to p.
func WithPublisher(p weather.SnapshotPublisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver. interval is the weather time-to-live.
func New(engine Engine, cache *store.Cache, directory weather.DirectoryProvider, provider weather.Provider, interval time.Duration, opts ...Option) *Resolver {
	r := &Resolver{
		engine:    engine,
		cache:     cache,
		directory: directory,
		provider:  provider,
		publisher: store.NopPublisher{},
		interval:  interval,
		now:       time.Now,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "resolver")
	return r
}

// Install creates the Countries folder and registers the lookup hook.
func (r *Resolver) Install(ctx context.Context) error {
	err := r.engine.AddObjectNode(ctx, addrspace.NodeSpec{
		ID:          nodeid.Root,
		ParentID:    addrspace.RootID,
		BrowseName:  nodeid.Root,
		Description: descCountries,
	})
	if err != nil && !errors.Is(err, addrspace.ErrNodeExists) {
		return err
	}
	r.engine.SetLookupHook(r.Lookup)
	return nil
}

// Lookup is the address space lookup hook. It materializes whatever id refers
// to and then delegates to next. It never fails on upstream errors.
func (r *Resolver) Lookup(ctx context.Context, id string, next addrspace.LookupFunc) (*addrspace.Node, bool) {
	path, err := nodeid.Decode(id, nil)
	if errors.Is(err, nodeid.ErrNotApplicable) || r.busy {
		return next(ctx, id)
	}

	r.materializeCountries(ctx)
	if path.IsRoot() {
		return next(ctx, id)
	}

	country, ok := r.cache.Country(path.Country)
	if ok && country.State == weather.NotMaterialized {
		r.retryCountry(ctx, country)
	}
	if !ok || country.State != weather.Materialized || !path.HasLocation {
		return next(ctx, id)
	}
	r.materializeLocations(ctx, country)

	path, err = nodeid.Decode(id, r.cache.KnownLocations(country.Code))
	if err != nil || !path.HasVariable {
		return next(ctx, id)
	}

	loc, ok := r.cache.Location(path.Country, path.Location)
	if ok && loc.State == weather.Materialized && loc.Attributes == weather.AttributesNone {
		r.materializeAttributes(ctx, loc)
	}
	return next(ctx, id)
}

// Read is the read hook of every weather variable. Stale weather is refetched
// first; on failure the previous snapshot is served. It always returns nil.
func (r *Resolver) Read(ctx context.Context, id string, dv *addrspace.DataValue) error {
	*dv = addrspace.DataValue{}

	path, err := nodeid.Decode(id, nil)
	if err != nil || path.IsRoot() {
		return nil
	}
	path, err = nodeid.Decode(id, r.cache.KnownLocations(path.Country))
	if err != nil || !path.HasVariable {
		return nil
	}
	loc, ok := r.cache.Location(path.Country, path.Location)
	if !ok {
		return nil
	}
	variable, ok := weather.LookupVariable(path.Variable)
	if !ok {
		return nil
	}

	now := r.now()
	outcome := "cached"
	if weather.IsStale(loc, now, r.interval) {
		outcome = r.refresh(ctx, loc, now)
	}
	metrics.WeatherReadsTotal.WithLabelValues(outcome).Inc()

	dv.Value = variable.Value(loc.Snapshot)
	dv.HasValue = true
	dv.SourceTimestamp = loc.LastFetch
	if !loc.WeatherFetched {
		dv.SourceTimestamp = now
	}
	return nil
}

func (r *Resolver) refresh(ctx context.Context, loc *weather.Location, now time.Time) string {
	snap, err := r.provider.FetchCurrent(ctx, loc.Coordinates.Latitude, loc.Coordinates.Longitude)
	if err != nil {
		r.logger.Errorw("weather fetch failed; serving previous snapshot",
			"country", loc.CountryCode, "location", loc.Name, "provider", r.provider.Name(), "error", err)
		return "failed"
	}

	if err := r.cache.UpdateWeather(loc.CountryCode, loc.Name, snap, now); err != nil {
		r.logger.Errorw("weather update failed", "country", loc.CountryCode, "location", loc.Name, "error", err)
		return "failed"
	}
	if err := r.publisher.Publish(ctx, loc); err != nil {
		r.logger.Warnw("snapshot publish failed", "country", loc.CountryCode, "location", loc.Name, "error", err)
	}
	r.logger.Debugw("weather refreshed", "country", loc.CountryCode, "location", loc.Name)
	return "fetched"
}

// RefreshLocations refetches the location lists of countries whose locations
// are already loaded. New locations get nodes; surviving ones keep their
// nodes and weather.
func (r *Resolver) RefreshLocations(ctx context.Context) {
	for _, country := range r.cache.Countries() {
		if country.State != weather.Materialized || len(country.Locations) == 0 {
			continue
		}
		r.loadLocations(ctx, country)
	}
}

// CountrySummary describes a cached country.
type CountrySummary struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Cities         uint32 `json:"cities"`
	LocationsCount uint32 `json:"locationsCount"`
	Loaded         int    `json:"loadedLocations"`
	State          string `json:"state"`
}

// Countries materializes the country list if needed and summarizes it.
func (r *Resolver) Countries(ctx context.Context) []CountrySummary {
	if !r.busy {
		r.materializeCountries(ctx)
	}

	countries := r.cache.Countries()
	out := make([]CountrySummary, 0, len(countries))
	for _, c := range countries {
		out = append(out, CountrySummary{
			Code:           c.Code,
			Name:           c.Name,
			Cities:         c.Cities,
			LocationsCount: c.LocationsCount,
			Loaded:         len(c.Locations),
			State:          c.State.String(),
		})
	}
	return out
}

func (r *Resolver) materializeCountries(ctx context.Context) {
	if r.countries != weather.NotMaterialized {
		return
	}
	r.countries = weather.Materializing
	r.busy = true
	defer func() { r.busy = false }()

	records, err := r.directory.ListCountries(ctx)
	if err != nil {
		r.countries = weather.NotMaterialized
		r.logger.Errorw("country list fetch failed; will retry on next lookup",
			"provider", r.directory.Name(), "error", err)
		return
	}
	r.cache.ReplaceCountries(records)

	for _, country := range r.cache.Countries() {
		if country.State == weather.NotMaterialized {
			r.materializeCountry(ctx, country)
		}
	}
	r.countries = weather.Materialized
	r.logger.Infow("countries materialized", "count", len(records))
}

// retryCountry recreates the nodes of a country whose earlier creation failed.
func (r *Resolver) retryCountry(ctx context.Context, country *weather.Country) {
	r.busy = true
	defer func() { r.busy = false }()
	r.materializeCountry(ctx, country)
}

func (r *Resolver) materializeCountry(ctx context.Context, country *weather.Country) {
	country.State = weather.Materializing
	if err := r.addCountryNodes(ctx, country); err != nil {
		country.State = weather.NotMaterialized
		r.logger.Errorw("country nodes not created; will retry on next lookup", "country", country.Code, "error", err)
		return
	}
	country.State = weather.Materialized
}

func (r *Resolver) materializeLocations(ctx context.Context, country *weather.Country) {
	if len(country.Locations) > 0 {
		return
	}
	r.loadLocations(ctx, country)
}

func (r *Resolver) loadLocations(ctx context.Context, country *weather.Country) {
	r.busy = true
	defer func() { r.busy = false }()

	records, err := r.directory.ListLocations(ctx, country.Code, int(country.LocationsCount))
	if err != nil {
		r.logger.Errorw("location list fetch failed; will retry on next lookup",
			"country", country.Code, "provider", r.directory.Name(), "error", err)
		return
	}
	if err := r.cache.ReplaceLocations(country.Code, records); err != nil {
		r.logger.Errorw("location list not stored", "country", country.Code, "error", err)
		return
	}

	names := make([]string, 0, len(country.Locations))
	for name, loc := range country.Locations {
		if loc.State == weather.NotMaterialized {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		loc := country.Locations[name]
		loc.State = weather.Materializing
		if err := r.addLocationNodes(ctx, loc); err != nil {
			loc.State = weather.NotMaterialized
			r.logger.Errorw("location nodes not created", "country", country.Code, "location", name, "error", err)
			continue
		}
		loc.State = weather.Materialized
	}
	r.logger.Infow("locations materialized",
		"country", country.Code, "received", len(records), "kept", len(country.Locations))
}

func (r *Resolver) materializeAttributes(ctx context.Context, loc *weather.Location) {
	loc.Attributes = weather.AttributesCreating
	r.busy = true
	defer func() { r.busy = false }()

	parent := nodeid.Encode(loc.CountryCode, loc.Name, "")
	for _, v := range weather.Variables {
		err := r.engine.AddDataSourceVariableNode(ctx, addrspace.NodeSpec{
			ID:          nodeid.Encode(loc.CountryCode, loc.Name, v.Name),
			ParentID:    parent,
			BrowseName:  v.Name,
			Description: v.Description,
			Source:      r.Read,
		})
		if ignoreExists(err) != nil {
			loc.Attributes = weather.AttributesNone
			r.logger.Errorw("weather variable not created",
				"country", loc.CountryCode, "location", loc.Name, "variable", v.Name, "error", err)
			return
		}
	}
	loc.Attributes = weather.AttributesCreated
}

func (r *Resolver) addCountryNodes(ctx context.Context, c *weather.Country) error {
	id := nodeid.Encode(c.Code, "", "")
	err := r.engine.AddObjectNode(ctx, addrspace.NodeSpec{
		ID:          id,
		ParentID:    nodeid.Root,
		BrowseName:  c.Code,
		DisplayName: c.Name,
		Description: descCountry,
	})
	if err := ignoreExists(err); err != nil {
		return err
	}

	vars := []addrspace.NodeSpec{
		{BrowseName: "CountryName", Description: descCountryName, Value: c.Name},
		{BrowseName: "CountryCode", Description: descCountryCode, Value: c.Code},
		{BrowseName: "CountryCitiesNumber", Description: descCitiesNumber, Value: c.Cities},
		{BrowseName: "CountryLocationsNumber", Description: descLocationsCount, Value: c.LocationsCount},
	}
	for _, spec := range vars {
		spec.ID = id + "." + spec.BrowseName
		spec.ParentID = id
		if err := ignoreExists(r.engine.AddVariableNode(ctx, spec)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) addLocationNodes(ctx context.Context, loc *weather.Location) error {
	id := nodeid.Encode(loc.CountryCode, loc.Name, "")
	err := r.engine.AddObjectNode(ctx, addrspace.NodeSpec{
		ID:          id,
		ParentID:    nodeid.Encode(loc.CountryCode, "", ""),
		BrowseName:  loc.Name,
		Description: descLocation,
	})
	if err := ignoreExists(err); err != nil {
		return err
	}

	return ignoreExists(r.engine.AddVariableNode(ctx, addrspace.NodeSpec{
		ID:          nodeid.Encode(loc.CountryCode, loc.Name, FlagInitialize),
		ParentID:    id,
		BrowseName:  FlagInitialize,
		Description: descFlagInitialize,
		Value:       true,
	}))
}

func ignoreExists(err error) error {
	if errors.Is(err, addrspace.ErrNodeExists) {
		return nil
	}
	return err
}
