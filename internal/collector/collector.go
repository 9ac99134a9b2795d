// Package collector exposes SolisCloud station data as Prometheus metrics.
package collector

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hultenvp/soliscloud-golang/soliscloud"
)

// The vendor caps detail freshness at roughly five minutes, so scraping
// more often than that only burns rate-limit budget.
const minFetchInterval = 5 * time.Minute

// StationSource is the slice of the API client the collector needs.
type StationSource interface {
	StationIDs(ctx context.Context, nmiCode string) ([]int64, error)
	StationDetail(ctx context.Context, station soliscloud.StationRef) (json.RawMessage, error)
}

type stationDetail struct {
	Name        string  `json:"stationName"`
	Power       float64 `json:"power"`
	DayEnergy   float64 `json:"dayEnergy"`
	MonthEnergy float64 `json:"monthEnergy"`
	YearEnergy  float64 `json:"yearEnergy"`
	TotalEnergy float64 `json:"allEnergy"`
	State       int     `json:"state"`
}

type stationSnapshot struct {
	id     int64
	detail stationDetail
}

type cachedSnapshot struct {
	stations  []stationSnapshot
	fetchedAt time.Time
	success   bool
}

// StationCollector collects per-station power and energy metrics. It
// fetches on scrape and caches the result so frequent scrapes do not
// exhaust the API allowance.
type StationCollector struct {
	source     StationSource
	log        *zap.Logger
	stationIDs []int64
	nmiCode    string

	power       *prometheus.GaugeVec
	dayEnergy   *prometheus.GaugeVec
	monthEnergy *prometheus.GaugeVec
	yearEnergy  *prometheus.GaugeVec
	totalEnergy *prometheus.GaugeVec
	state       *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
	success     prometheus.Gauge

	mu     sync.Mutex
	cached *cachedSnapshot
	now    func() time.Time
}

// NewStationCollector builds the collector. stationIDs may be empty, in
// which case stations are discovered from the account on each refresh.
func NewStationCollector(source StationSource, log *zap.Logger, stationIDs []int64, nmiCode string) *StationCollector {
	labels := []string{"station_id", "station_name"}
	return &StationCollector{
		source:     source,
		log:        log,
		stationIDs: stationIDs,
		nmiCode:    nmiCode,
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soliscloud_station_power_kilowatts",
			Help: "Current power output per station (kW)",
		}, labels),
		dayEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soliscloud_station_day_energy_kwh",
			Help: "Today's energy per station (kWh)",
		}, labels),
		monthEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soliscloud_station_month_energy_kwh",
			Help: "Monthly energy per station (kWh)",
		}, labels),
		yearEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soliscloud_station_year_energy_kwh",
			Help: "Yearly energy per station (kWh)",
		}, labels),
		totalEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soliscloud_station_total_energy_kwh",
			Help: "Total lifetime energy per station (kWh)",
		}, labels),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soliscloud_station_state",
			Help: "Station state as reported by the vendor (1=online, 2=offline, 3=alarm)",
		}, labels),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soliscloud_station_last_success_timestamp_seconds",
			Help: "Last successful station refresh timestamp (epoch seconds)",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soliscloud_station_refresh_success",
			Help: "Last station refresh success (1=ok, 0=error)",
		}),
		now: time.Now,
	}
}

func (c *StationCollector) Describe(ch chan<- *prometheus.Desc) {
	c.power.Describe(ch)
	c.dayEnergy.Describe(ch)
	c.monthEnergy.Describe(ch)
	c.yearEnergy.Describe(ch)
	c.totalEnergy.Describe(ch)
	c.state.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.success.Describe(ch)
}

func (c *StationCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.cached.fetchedAt) < minFetchInterval {
		snapshot := *c.cached
		c.mu.Unlock()
		c.applySnapshot(snapshot)
		c.collectAll(ch)
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot := c.refresh(ctx)
	c.storeSnapshot(snapshot)
	c.applySnapshot(snapshot)
	c.collectAll(ch)
}

func (c *StationCollector) refresh(ctx context.Context) cachedSnapshot {
	ids := c.stationIDs
	if len(ids) == 0 {
		discovered, err := c.source.StationIDs(ctx, c.nmiCode)
		if err != nil {
			c.log.Warn("station discovery failed", zap.Error(err))
			return cachedSnapshot{fetchedAt: c.now()}
		}
		ids = discovered
	}

	snapshot := cachedSnapshot{fetchedAt: c.now(), success: true}
	for _, id := range ids {
		raw, err := c.source.StationDetail(ctx, soliscloud.StationRef{ID: id})
		if err != nil {
			c.log.Warn("station detail fetch failed",
				zap.Int64("station_id", id), zap.Error(err))
			snapshot.success = false
			continue
		}
		var detail stationDetail
		if err := json.Unmarshal(raw, &detail); err != nil {
			c.log.Warn("station detail decode failed",
				zap.Int64("station_id", id), zap.Error(err))
			snapshot.success = false
			continue
		}
		snapshot.stations = append(snapshot.stations, stationSnapshot{id: id, detail: detail})
	}
	return snapshot
}

func (c *StationCollector) storeSnapshot(snapshot cachedSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = &snapshot
}

func (c *StationCollector) applySnapshot(snapshot cachedSnapshot) {
	c.power.Reset()
	c.dayEnergy.Reset()
	c.monthEnergy.Reset()
	c.yearEnergy.Reset()
	c.totalEnergy.Reset()
	c.state.Reset()

	for _, station := range snapshot.stations {
		labels := prometheus.Labels{
			"station_id":   strconv.FormatInt(station.id, 10),
			"station_name": station.detail.Name,
		}
		c.power.With(labels).Set(station.detail.Power)
		c.dayEnergy.With(labels).Set(station.detail.DayEnergy)
		c.monthEnergy.With(labels).Set(station.detail.MonthEnergy)
		c.yearEnergy.With(labels).Set(station.detail.YearEnergy)
		c.totalEnergy.With(labels).Set(station.detail.TotalEnergy)
		c.state.With(labels).Set(float64(station.detail.State))
	}

	if snapshot.success {
		c.success.Set(1)
		c.lastSuccess.Set(float64(snapshot.fetchedAt.Unix()))
	} else {
		c.success.Set(0)
	}
}

func (c *StationCollector) collectAll(ch chan<- prometheus.Metric) {
	c.power.Collect(ch)
	c.dayEnergy.Collect(ch)
	c.monthEnergy.Collect(ch)
	c.yearEnergy.Collect(ch)
	c.totalEnergy.Collect(ch)
	c.state.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.success.Collect(ch)
}
