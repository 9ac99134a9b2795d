package soliscloud

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Plant is a typed view of a station detail record. Power is
// normalized to watts and energies to kWh regardless of the unit the
// vendor chose for the reading.
type Plant struct {
	ID             int64
	Name           string
	Type           PlantType
	State          State
	CapacityKW     float64
	PowerWatts     float64
	DayEnergyKWh   float64
	MonthEnergyKWh float64
	YearEnergyKWh  float64
	TotalEnergyKWh float64
	DataTimestamp  time.Time

	Inverters []*Inverter
}

// Inverter is a typed view of an inverter detail record.
type Inverter struct {
	ID            int64
	SN            string
	Name          string
	StationID     int64
	CollectorID   int64
	CollectorSN   string
	Type          InverterType
	State         State
	OfflineState  InverterOfflineState
	AcOutput      AcOutputType
	PowerWatts    float64
	DayEnergyKWh  float64
	TotalKWh      float64
	TemperatureC  float64
	DataTimestamp time.Time

	Collectors []*Collector
}

// Collector is a typed view of a datalogger record.
type Collector struct {
	ID            int64
	SN            string
	StationID     int64
	Model         string
	State         CollectorState
	DataTimestamp time.Time
}

// normalizeRecordList accepts either a single record object or an array
// of records and always returns the individual records.
func normalizeRecordList(data json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Msg: "empty record payload"}
	}
	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &ParseError{Msg: "malformed record list", Err: err}
		}
		return records, nil
	}
	return []json.RawMessage{trimmed}, nil
}

type plantRecord struct {
	ID              recordID    `json:"id"`
	Name            string      `json:"stationName"`
	Type            flexInt     `json:"type"`
	State           flexInt     `json:"state"`
	Capacity        flexFloat   `json:"capacity"`
	CapacityUnit    string      `json:"capacityStr"`
	Power           flexFloat   `json:"power"`
	PowerUnit       string      `json:"powerStr"`
	DayEnergy       flexFloat   `json:"dayEnergy"`
	DayEnergyUnit   string      `json:"dayEnergyStr"`
	MonthEnergy     flexFloat   `json:"monthEnergy"`
	MonthEnergyUnit string      `json:"monthEnergyStr"`
	YearEnergy      flexFloat   `json:"yearEnergy"`
	YearEnergyUnit  string      `json:"yearEnergyStr"`
	AllEnergy       flexFloat   `json:"allEnergy"`
	AllEnergyUnit   string      `json:"allEnergyStr"`
	DataTimestamp   msTimestamp `json:"dataTimestamp"`
}

func plantFromRecord(raw json.RawMessage) (*Plant, error) {
	var rec plantRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &ParseError{Msg: "malformed plant record", Err: err}
	}
	if rec.ID == 0 {
		return nil, &ParseError{Msg: "plant record missing id"}
	}

	capacity, err := normalizeSI(float64(rec.Capacity), rec.CapacityUnit, "Wp", "k")
	if err != nil {
		// Some accounts report capacity in kW instead of kWp.
		capacity, err = normalizeSI(float64(rec.Capacity), rec.CapacityUnit, "W", "k")
		if err != nil {
			return nil, err
		}
	}
	power, err := NormalizeWatts(float64(rec.Power), rec.PowerUnit)
	if err != nil {
		return nil, err
	}
	day, err := NormalizeKWh(float64(rec.DayEnergy), rec.DayEnergyUnit)
	if err != nil {
		return nil, err
	}
	month, err := NormalizeKWh(float64(rec.MonthEnergy), rec.MonthEnergyUnit)
	if err != nil {
		return nil, err
	}
	year, err := NormalizeKWh(float64(rec.YearEnergy), rec.YearEnergyUnit)
	if err != nil {
		return nil, err
	}
	total, err := NormalizeKWh(float64(rec.AllEnergy), rec.AllEnergyUnit)
	if err != nil {
		return nil, err
	}

	return &Plant{
		ID:             int64(rec.ID),
		Name:           rec.Name,
		Type:           PlantType(rec.Type),
		State:          State(rec.State),
		CapacityKW:     capacity,
		PowerWatts:     power,
		DayEnergyKWh:   day,
		MonthEnergyKWh: month,
		YearEnergyKWh:  year,
		TotalEnergyKWh: total,
		DataTimestamp:  time.Time(rec.DataTimestamp),
	}, nil
}

// PlantsFromData parses the payload of StationDetail or
// StationDetailList into typed plants. A non-zero plantID keeps only
// the matching record.
func PlantsFromData(data json.RawMessage, plantID int64) ([]*Plant, error) {
	records, err := normalizeRecordList(data)
	if err != nil {
		return nil, err
	}
	plants := make([]*Plant, 0, len(records))
	for _, raw := range records {
		plant, err := plantFromRecord(raw)
		if err != nil {
			return nil, err
		}
		if plantID != 0 && plant.ID != plantID {
			continue
		}
		plants = append(plants, plant)
	}
	return plants, nil
}

type inverterRecord struct {
	ID            recordID    `json:"id"`
	SN            string      `json:"sn"`
	Name          string      `json:"name"`
	StationID     recordID    `json:"stationId"`
	CollectorID   recordID    `json:"collectorId"`
	CollectorSN   string      `json:"collectorsn"`
	Type          flexInt     `json:"type"`
	State         flexInt     `json:"state"`
	OfflineState  flexInt     `json:"stateExceptionFlag"`
	AcOutput      flexInt     `json:"acOutputType"`
	Power         flexFloat   `json:"power"`
	PowerUnit     string      `json:"powerStr"`
	DayEnergy     flexFloat   `json:"etoday"`
	DayEnergyUnit string      `json:"etodayStr"`
	Total         flexFloat   `json:"etotal"`
	TotalUnit     string      `json:"etotalStr"`
	Temperature   flexFloat   `json:"inverterTemperature"`
	DataTimestamp msTimestamp `json:"dataTimestamp"`
}

func inverterFromRecord(raw json.RawMessage) (*Inverter, error) {
	var rec inverterRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &ParseError{Msg: "malformed inverter record", Err: err}
	}
	if rec.ID == 0 {
		return nil, &ParseError{Msg: "inverter record missing id"}
	}

	power, err := NormalizeWatts(float64(rec.Power), rec.PowerUnit)
	if err != nil {
		return nil, err
	}
	day, err := NormalizeKWh(float64(rec.DayEnergy), rec.DayEnergyUnit)
	if err != nil {
		return nil, err
	}
	total, err := NormalizeKWh(float64(rec.Total), rec.TotalUnit)
	if err != nil {
		return nil, err
	}

	acOutput := SinglePhase
	if rec.AcOutput != 0 {
		acOutput = ThreePhase
	}

	return &Inverter{
		ID:            int64(rec.ID),
		SN:            rec.SN,
		Name:          rec.Name,
		StationID:     int64(rec.StationID),
		CollectorID:   int64(rec.CollectorID),
		CollectorSN:   rec.CollectorSN,
		Type:          InverterType(rec.Type),
		State:         State(rec.State),
		OfflineState:  InverterOfflineState(rec.OfflineState),
		AcOutput:      acOutput,
		PowerWatts:    power,
		DayEnergyKWh:  day,
		TotalKWh:      total,
		TemperatureC:  float64(rec.Temperature),
		DataTimestamp: time.Time(rec.DataTimestamp),
	}, nil
}

// InvertersFromData parses the payload of InverterDetail or
// InverterDetailList into typed inverters. Non-zero stationID or
// inverterID keep only matching records.
func InvertersFromData(data json.RawMessage, stationID, inverterID int64) ([]*Inverter, error) {
	records, err := normalizeRecordList(data)
	if err != nil {
		return nil, err
	}
	inverters := make([]*Inverter, 0, len(records))
	for _, raw := range records {
		inverter, err := inverterFromRecord(raw)
		if err != nil {
			return nil, err
		}
		if stationID != 0 && inverter.StationID != stationID {
			continue
		}
		if inverterID != 0 && inverter.ID != inverterID {
			continue
		}
		inverters = append(inverters, inverter)
	}
	return inverters, nil
}

type collectorRecord struct {
	ID            recordID    `json:"id"`
	SN            string      `json:"sn"`
	StationID     recordID    `json:"stationId"`
	Model         string      `json:"model"`
	State         flexInt     `json:"state"`
	DataTimestamp msTimestamp `json:"dataTimestamp"`
}

func collectorFromRecord(raw json.RawMessage) (*Collector, error) {
	var rec collectorRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &ParseError{Msg: "malformed collector record", Err: err}
	}
	if rec.ID == 0 {
		return nil, &ParseError{Msg: "collector record missing id"}
	}
	return &Collector{
		ID:            int64(rec.ID),
		SN:            rec.SN,
		StationID:     int64(rec.StationID),
		Model:         rec.Model,
		State:         CollectorState(rec.State),
		DataTimestamp: time.Time(rec.DataTimestamp),
	}, nil
}

// CollectorsFromData parses the payload of CollectorDetail or
// CollectorList into typed collectors. Non-zero stationID or
// collectorID keep only matching records.
func CollectorsFromData(data json.RawMessage, stationID, collectorID int64) ([]*Collector, error) {
	records, err := normalizeRecordList(data)
	if err != nil {
		return nil, err
	}
	collectors := make([]*Collector, 0, len(records))
	for _, raw := range records {
		collector, err := collectorFromRecord(raw)
		if err != nil {
			return nil, err
		}
		if stationID != 0 && collector.StationID != stationID {
			continue
		}
		if collectorID != 0 && collector.ID != collectorID {
			continue
		}
		collectors = append(collectors, collector)
	}
	return collectors, nil
}

// Plants builds the full typed tree for the account: plants with their
// inverters, each with its collector. plantID 0 covers every plant
// under the account. Each level costs one or more API calls, so on a
// large account this walks the whole rate budget.
func (c *Client) Plants(ctx context.Context, plantID int64) ([]*Plant, error) {
	var data json.RawMessage
	var err error
	if plantID == 0 {
		data, err = c.StationDetailList(ctx, PageOptions{PageNo: 1, PageSize: MaxPageSize})
	} else {
		data, err = c.StationDetail(ctx, StationRef{ID: plantID})
	}
	if err != nil {
		return nil, err
	}

	plants, err := PlantsFromData(data, plantID)
	if err != nil {
		return nil, err
	}
	for _, plant := range plants {
		inverters, err := c.Inverters(ctx, plant.ID, 0)
		if err != nil {
			return nil, err
		}
		plant.Inverters = inverters
	}
	return plants, nil
}

// Inverters builds typed inverters with their collectors attached.
// stationID and inverterID filter when non-zero.
func (c *Client) Inverters(ctx context.Context, stationID, inverterID int64) ([]*Inverter, error) {
	var data json.RawMessage
	var err error
	if inverterID != 0 {
		data, err = c.InverterDetail(ctx, DeviceRef{ID: inverterID})
	} else {
		data, err = c.InverterDetailList(ctx, PageOptions{PageNo: 1, PageSize: MaxPageSize})
	}
	if err != nil {
		return nil, err
	}

	inverters, err := InvertersFromData(data, stationID, inverterID)
	if err != nil {
		return nil, err
	}
	for _, inverter := range inverters {
		if inverter.CollectorID == 0 {
			continue
		}
		detail, err := c.CollectorDetail(ctx, DeviceRef{ID: inverter.CollectorID})
		if err != nil {
			return nil, err
		}
		collectors, err := CollectorsFromData(detail, 0, inverter.CollectorID)
		if err != nil {
			return nil, err
		}
		inverter.Collectors = collectors
	}
	return inverters, nil
}
