package soliscloud

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// State is the online state the vendor reports for stations and
// inverters.
type State int

const (
	StateOnline  State = 1
	StateOffline State = 2
	StateAlarm   State = 3
)

func (s State) String() string {
	switch s {
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	case StateAlarm:
		return "alarm"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CollectorState is the online state of a datalogger. Collectors have
// no alarm state.
type CollectorState int

const (
	CollectorOnline  CollectorState = 1
	CollectorOffline CollectorState = 2
)

func (s CollectorState) String() string {
	switch s {
	case CollectorOnline:
		return "online"
	case CollectorOffline:
		return "offline"
	default:
		return fmt.Sprintf("collector state(%d)", int(s))
	}
}

// InverterType distinguishes grid-tied from storage inverters.
type InverterType int

const (
	InverterGrid    InverterType = 1
	InverterStorage InverterType = 2
)

func (t InverterType) String() string {
	switch t {
	case InverterGrid:
		return "grid"
	case InverterStorage:
		return "storage"
	default:
		return fmt.Sprintf("inverter type(%d)", int(t))
	}
}

// InverterOfflineState qualifies an offline inverter: planned shutdown
// versus fault.
type InverterOfflineState int

const (
	OfflineNormal   InverterOfflineState = 0
	OfflineAbnormal InverterOfflineState = 1
)

// AcOutputType is the grid connection phase count.
type AcOutputType int

const (
	SinglePhase AcOutputType = 0
	ThreePhase  AcOutputType = 1
)

// PlantType is the vendor's plant category.
type PlantType int

const (
	PlantGrid PlantType = iota
	PlantEnergyStorage
	PlantAcCouple
	PlantEpm
	PlantBuiltInMeter
	PlantExternalMeter
	PlantS5OfflineParallelStorage
	PlantS5GridParallelStorage
	PlantGridAndAcCouple
	PlantOffgridStorage
	PlantS6GridParallelStorage
	PlantS6OfflineParallelStorage
)

var plantTypeNames = map[PlantType]string{
	PlantGrid:                     "grid",
	PlantEnergyStorage:            "energy storage",
	PlantAcCouple:                 "ac couple",
	PlantEpm:                      "epm",
	PlantBuiltInMeter:             "built-in meter",
	PlantExternalMeter:            "external meter",
	PlantS5OfflineParallelStorage: "s5 offline and parallel storage",
	PlantS5GridParallelStorage:    "s5 grid and parallel storage",
	PlantGridAndAcCouple:          "grid and ac couple",
	PlantOffgridStorage:           "offgrid storage",
	PlantS6GridParallelStorage:    "s6 grid and parallel storage",
	PlantS6OfflineParallelStorage: "s6 offline and parallel storage",
}

func (t PlantType) String() string {
	if name, ok := plantTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("plant type(%d)", int(t))
}

// siMultipliers maps an SI prefix to its multiplier relative to the
// unprefixed unit.
var siMultipliers = map[string]float64{
	"T": 1e12,
	"G": 1e9,
	"M": 1e6,
	"k": 1e3,
	"":  1,
	"m": 1e-3,
	"µ": 1e-6,
}

// normalizeSI converts value from the given unit to the target prefix
// of the same base unit, e.g. ("1.5", "kW", "W", "") to 1500 watts. An
// empty unit means the value already carries the target prefix.
func normalizeSI(value float64, unit, baseUnit, targetPrefix string) (float64, error) {
	if unit == "" {
		return value, nil
	}
	if !strings.HasSuffix(unit, baseUnit) {
		return 0, &ParseError{Msg: fmt.Sprintf("unit %q is not a %s unit", unit, baseUnit)}
	}
	prefix := strings.TrimSuffix(unit, baseUnit)
	mult, ok := siMultipliers[prefix]
	if !ok {
		return 0, &ParseError{Msg: fmt.Sprintf("unknown unit prefix in %q", unit)}
	}
	target, ok := siMultipliers[targetPrefix]
	if !ok {
		return 0, &ParseError{Msg: fmt.Sprintf("unknown target prefix %q", targetPrefix)}
	}
	return value * mult / target, nil
}

// NormalizeWatts converts a power reading with the vendor's unit string
// (W, kW, MW, ...) to watts.
func NormalizeWatts(value float64, unit string) (float64, error) {
	return normalizeSI(value, unit, "W", "")
}

// NormalizeKWh converts an energy reading with the vendor's unit string
// (Wh, kWh, MWh, ...) to kilowatt hours.
func NormalizeKWh(value float64, unit string) (float64, error) {
	return normalizeSI(value, unit, "Wh", "k")
}

// flexFloat tolerates the vendor serializing numbers as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexInt tolerates the vendor serializing integers as strings.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*i = flexInt(v)
	return nil
}

// msTimestamp decodes the vendor's millisecond epoch timestamps, sent
// as strings or numbers. Zero or absent stays the zero time.
type msTimestamp time.Time

func (t *msTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*t = msTimestamp(time.Time{})
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	if ms == 0 {
		*t = msTimestamp(time.Time{})
		return nil
	}
	*t = msTimestamp(time.UnixMilli(ms).UTC())
	return nil
}
