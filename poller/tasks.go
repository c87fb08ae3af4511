package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/kpouget/wunderground2prom/errors"
	"github.com/kpouget/wunderground2prom/fetcher"
	"github.com/kpouget/wunderground2prom/health"
	"github.com/kpouget/wunderground2prom/station"
)

// WeatherTask polls one weather station's temperature each tick.
type WeatherTask struct {
	station station.Weather
	fetcher *fetcher.WeatherFetcher
	store   *health.Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewWeatherTask creates the poll task for one weather station.
func NewWeatherTask(st station.Weather, f *fetcher.WeatherFetcher, store *health.Store, logger *slog.Logger) *WeatherTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherTask{
		station: st,
		fetcher: f,
		store:   store,
		logger:  logger.With("component", "weather-task", "station_id", st.ID),
		now:     time.Now,
	}
}

// Name returns the station key.
func (t *WeatherTask) Name() string { return t.station.Key() }

// Poll fetches the station once and records the outcome. Failures stay
// inside the tick; the only trace they leave is a stale record.
func (t *WeatherTask) Poll(ctx context.Context) {
	obs, err := t.fetcher.Fetch(ctx, t.station)
	if err != nil {
		t.logger.Warn("fetch failed", "station", t.station.Name, "reason", errors.Reason(err), "error", err)
		if rerr := t.store.RecordFailure(t.station.Key(), health.SubTemperature, errors.Reason(err)); rerr != nil {
			t.logger.Error("failure bookkeeping rejected", "error", rerr)
		}
		return
	}

	if err := t.store.RecordSuccess(t.station.Key(), health.SubTemperature, obs.Value, obs.Duration, t.now()); err != nil {
		t.logger.Error("success bookkeeping rejected", "error", err)
		return
	}
	t.logger.Debug("temperature recorded", "value", obs.Value, "duration", obs.Duration)
}

// RiverTask polls one river station each tick: the flow and height
// series are fetched within the same tick, with each sub-fetch recorded
// independently (one may succeed while the other fails).
type RiverTask struct {
	station station.River
	fetcher *fetcher.RiverFetcher
	store   *health.Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewRiverTask creates the poll task for one river station.
func NewRiverTask(st station.River, f *fetcher.RiverFetcher, store *health.Store, logger *slog.Logger) *RiverTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiverTask{
		station: st,
		fetcher: f,
		store:   store,
		logger: logger.With("component", "river-task",
			"river", st.River, "station", st.Station, "station_id", st.ID),
		now: time.Now,
	}
}

// Name returns the station key.
func (t *RiverTask) Name() string { return t.station.Key() }

// Poll fetches both series for the station and records each outcome.
func (t *RiverTask) Poll(ctx context.Context) {
	t.pollSeries(ctx, fetcher.SeriesFlow, health.SubFlow)
	t.pollSeries(ctx, fetcher.SeriesHeight, health.SubHeight)
}

func (t *RiverTask) pollSeries(ctx context.Context, series fetcher.Series, sub string) {
	obs, err := t.fetcher.Fetch(ctx, t.station, series)
	if err != nil {
		t.logger.Warn("fetch failed", "series", series, "reason", errors.Reason(err), "error", err)
		if rerr := t.store.RecordFailure(t.station.Key(), sub, errors.Reason(err)); rerr != nil {
			t.logger.Error("failure bookkeeping rejected", "error", rerr)
		}
		return
	}

	if err := t.store.RecordSuccess(t.station.Key(), sub, obs.Value, obs.Duration, t.now()); err != nil {
		t.logger.Error("success bookkeeping rejected", "error", err)
		return
	}
	t.logger.Debug("reading recorded", "series", series, "value", obs.Value, "duration", obs.Duration)
}
