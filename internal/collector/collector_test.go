package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hultenvp/soliscloud-golang/soliscloud"
)

type fakeSource struct {
	idCalls     int
	detailCalls int
	ids         []int64
	details     map[int64]string
	detailErr   error
}

func (f *fakeSource) StationIDs(_ context.Context, _ string) ([]int64, error) {
	f.idCalls++
	return f.ids, nil
}

func (f *fakeSource) StationDetail(_ context.Context, station soliscloud.StationRef) (json.RawMessage, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	detail, ok := f.details[station.ID]
	if !ok {
		return nil, fmt.Errorf("unknown station %d", station.ID)
	}
	return json.RawMessage(detail), nil
}

func gather(t *testing.T, c *StationCollector) map[string]float64 {
	t.Helper()
	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				if label.GetName() == "station_id" {
					key += "/" + label.GetValue()
				}
			}
			values[key] = metric.GetGauge().GetValue()
		}
	}
	return values
}

func TestCollectExportsStationMetrics(t *testing.T) {
	source := &fakeSource{
		details: map[int64]string{
			42: `{"stationName":"Roof","power":3.2,"dayEnergy":12.5,"monthEnergy":310,"yearEnergy":2400,"allEnergy":9100,"state":1}`,
		},
	}
	c := NewStationCollector(source, zap.NewNop(), []int64{42}, "")

	values := gather(t, c)

	if got := values["soliscloud_station_power_kilowatts/42"]; got != 3.2 {
		t.Errorf("power = %v, want 3.2", got)
	}
	if got := values["soliscloud_station_day_energy_kwh/42"]; got != 12.5 {
		t.Errorf("day energy = %v, want 12.5", got)
	}
	if got := values["soliscloud_station_state/42"]; got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
	if got := values["soliscloud_station_refresh_success"]; got != 1 {
		t.Errorf("refresh success = %v, want 1", got)
	}
	if source.idCalls != 0 {
		t.Errorf("idCalls = %d, want 0 when station ids are configured", source.idCalls)
	}
}

func TestCollectDiscoversStations(t *testing.T) {
	source := &fakeSource{
		ids: []int64{7},
		details: map[int64]string{
			7: `{"stationName":"Garage","power":0.5,"state":2}`,
		},
	}
	c := NewStationCollector(source, zap.NewNop(), nil, "")

	values := gather(t, c)

	if source.idCalls != 1 {
		t.Errorf("idCalls = %d, want 1", source.idCalls)
	}
	if got := values["soliscloud_station_state/7"]; got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
}

func TestCollectCachesBetweenScrapes(t *testing.T) {
	source := &fakeSource{
		details: map[int64]string{
			42: `{"stationName":"Roof","power":1}`,
		},
	}
	c := NewStationCollector(source, zap.NewNop(), []int64{42}, "")

	gather(t, c)
	gather(t, c)

	if source.detailCalls != 1 {
		t.Errorf("detailCalls = %d, want 1 within the cache window", source.detailCalls)
	}
}

func TestCollectReportsFailure(t *testing.T) {
	source := &fakeSource{
		detailErr: fmt.Errorf("boom"),
	}
	c := NewStationCollector(source, zap.NewNop(), []int64{42}, "")

	values := gather(t, c)

	if got := values["soliscloud_station_refresh_success"]; got != 0 {
		t.Errorf("refresh success = %v, want 0", got)
	}
}
