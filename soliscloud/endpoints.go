package soliscloud

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MaxPageSize is the largest page the vendor accepts.
const MaxPageSize = 100

type responseShape int

const (
	shapeData responseShape = iota
	shapeRecords
)

type endpoint struct {
	resource string
	shape    responseShape
}

// endpoints is the dispatch table: endpoint name to resource path and
// response shape. Wrapper methods and the raw CallEndpoint entry point
// both resolve through it.
var endpoints = map[string]endpoint{
	"userStationList":        {ResourcePrefix + "userStationList", shapeRecords},
	"stationDetail":          {ResourcePrefix + "stationDetail", shapeData},
	"stationDetailList":      {ResourcePrefix + "stationDetailList", shapeRecords},
	"stationDay":             {ResourcePrefix + "stationDay", shapeData},
	"stationMonth":           {ResourcePrefix + "stationMonth", shapeData},
	"stationYear":            {ResourcePrefix + "stationYear", shapeData},
	"stationAll":             {ResourcePrefix + "stationAll", shapeData},
	"stationDayEnergyList":   {ResourcePrefix + "stationDayEnergyList", shapeRecords},
	"stationMonthEnergyList": {ResourcePrefix + "stationMonthEnergyList", shapeRecords},
	"stationYearEnergyList":  {ResourcePrefix + "stationYearEnergyList", shapeRecords},
	"collectorList":          {ResourcePrefix + "collectorList", shapeRecords},
	"collectorDetail":        {ResourcePrefix + "collectorDetail", shapeData},
	"collectorDay":           {ResourcePrefix + "collector/day", shapeData},
	"inverterList":           {ResourcePrefix + "inverterList", shapeRecords},
	"inverterDetail":         {ResourcePrefix + "inverterDetail", shapeData},
	"inverterDetailList":     {ResourcePrefix + "inverterDetailList", shapeRecords},
	"inverterDay":            {ResourcePrefix + "inverterDay", shapeData},
	"inverterMonth":          {ResourcePrefix + "inverterMonth", shapeData},
	"inverterYear":           {ResourcePrefix + "inverterYear", shapeData},
	"inverterAll":            {ResourcePrefix + "inverterAll", shapeData},
	"inverterShelfTime":      {ResourcePrefix + "inverter/shelfTime", shapeRecords},
	"alarmList":              {ResourcePrefix + "alarmList", shapeRecords},
	"epmList":                {ResourcePrefix + "epmList", shapeRecords},
	"epmDetail":              {ResourcePrefix + "epmDetail", shapeData},
	"epmDay":                 {ResourcePrefix + "epm/day", shapeData},
	"epmMonth":               {ResourcePrefix + "epm/month", shapeData},
	"epmYear":                {ResourcePrefix + "epm/year", shapeData},
	"epmAll":                 {ResourcePrefix + "epm/all", shapeData},
	"weatherList":            {ResourcePrefix + "weatherList", shapeRecords},
	"weatherDetail":          {ResourcePrefix + "weatherDetail", shapeData},
}

// Endpoints returns all known endpoint names, sorted.
func Endpoints() []string {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallEndpoint dispatches to a named endpoint from the table, applying
// its response shape. Parameters are passed through unvalidated; the
// typed wrappers are the validating surface.
func (c *Client) CallEndpoint(ctx context.Context, name string, params map[string]any) (json.RawMessage, error) {
	ep, ok := endpoints[name]
	if !ok {
		return nil, &ValidationError{Msg: "unknown endpoint " + name}
	}
	if ep.shape == shapeRecords {
		return c.CallRecords(ctx, ep.resource, params)
	}
	return c.Call(ctx, ep.resource, params)
}

// PageOptions control paged endpoints. Zero values fall back to the
// vendor defaults (page 1, 20 records).
type PageOptions struct {
	PageNo   int
	PageSize int
}

func (p PageOptions) apply(params map[string]any) error {
	no, size := p.PageNo, p.PageSize
	if no <= 0 {
		no = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > MaxPageSize {
		return &ValidationError{Msg: fmt.Sprintf("page size must be <= %d", MaxPageSize)}
	}
	params["pageNo"] = no
	params["pageSize"] = size
	return nil
}

// StationRef identifies a station by exactly one of its numeric ID or
// its NMI code (AUS only).
type StationRef struct {
	ID      int64
	NMICode string
}

func (r StationRef) apply(params map[string]any) error {
	switch {
	case r.ID != 0 && r.NMICode == "":
		params["id"] = r.ID
	case r.ID == 0 && r.NMICode != "":
		params["nmiCode"] = r.NMICode
	default:
		return &ValidationError{Msg: "pass exactly one of station id or nmi code as identifier"}
	}
	return nil
}

// DeviceRef identifies an inverter, collector or similar device by
// exactly one of its numeric ID or its serial number.
type DeviceRef struct {
	ID int64
	SN string
}

func (r DeviceRef) apply(kind string, params map[string]any) error {
	switch {
	case r.SN != "" && r.ID == 0:
		params["sn"] = r.SN
	case r.SN == "" && r.ID != 0:
		params["id"] = r.ID
	default:
		return &ValidationError{Msg: "pass exactly one of " + kind + " id or sn as identifier"}
	}
	return nil
}

var (
	dayPattern   = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	monthPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)
	yearPattern  = regexp.MustCompile(`^[0-9]{4}$`)
)

func verifyDay(day string) error {
	if !dayPattern.MatchString(day) {
		return &ValidationError{Msg: "time must be in format YYYY-MM-DD"}
	}
	return nil
}

func verifyMonth(month string) error {
	if !monthPattern.MatchString(month) {
		return &ValidationError{Msg: "month must be in format YYYY-MM"}
	}
	return nil
}

func verifyYear(year string) error {
	if !yearPattern.MatchString(year) {
		return &ValidationError{Msg: "year must be in format YYYY"}
	}
	return nil
}

// UserStationList lists all stations under the account. Paged.
func (c *Client) UserStationList(ctx context.Context, page PageOptions, nmiCode string) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	if nmiCode != "" {
		params["nmiCode"] = nmiCode
	}
	return c.CallEndpoint(ctx, "userStationList", params)
}

// StationDetail returns the details of one station.
func (c *Client) StationDetail(ctx context.Context, station StationRef) (json.RawMessage, error) {
	params := map[string]any{}
	if err := station.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationDetail", params)
}

// StationDetailList batch-acquires station details for the whole
// account. Paged.
func (c *Client) StationDetailList(ctx context.Context, page PageOptions) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationDetailList", params)
}

// StationDay returns the daily generation graph of one station.
// day is YYYY-MM-DD, timeZone the offset from UTC in hours.
func (c *Client) StationDay(ctx context.Context, station StationRef, currency, day string, timeZone int) (json.RawMessage, error) {
	if err := verifyDay(day); err != nil {
		return nil, err
	}
	params := map[string]any{"money": currency, "time": day, "timeZone": timeZone}
	if err := station.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationDay", params)
}

// StationMonth returns the monthly generation graph of one station.
// month is YYYY-MM.
func (c *Client) StationMonth(ctx context.Context, station StationRef, currency, month string) (json.RawMessage, error) {
	if err := verifyMonth(month); err != nil {
		return nil, err
	}
	params := map[string]any{"money": currency, "month": month}
	if err := station.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationMonth", params)
}

// StationYear returns the yearly generation graph of one station.
// year is YYYY.
func (c *Client) StationYear(ctx context.Context, station StationRef, currency, year string) (json.RawMessage, error) {
	if err := verifyYear(year); err != nil {
		return nil, err
	}
	params := map[string]any{"money": currency, "year": year}
	if err := station.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationYear", params)
}

// StationAll returns the cumulative generation graph of one station.
func (c *Client) StationAll(ctx context.Context, station StationRef, currency string) (json.RawMessage, error) {
	params := map[string]any{"money": currency}
	if err := station.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationAll", params)
}

// StationDayEnergyList batch-acquires daily generation for all stations
// under the account. Paged.
func (c *Client) StationDayEnergyList(ctx context.Context, page PageOptions, day string) (json.RawMessage, error) {
	if err := verifyDay(day); err != nil {
		return nil, err
	}
	params := map[string]any{"time": day}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationDayEnergyList", params)
}

// StationMonthEnergyList batch-acquires monthly generation for all
// stations under the account. Paged.
func (c *Client) StationMonthEnergyList(ctx context.Context, page PageOptions, month string) (json.RawMessage, error) {
	if err := verifyMonth(month); err != nil {
		return nil, err
	}
	params := map[string]any{"time": month}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationMonthEnergyList", params)
}

// StationYearEnergyList batch-acquires yearly generation for all
// stations under the account. Paged.
func (c *Client) StationYearEnergyList(ctx context.Context, page PageOptions, year string) (json.RawMessage, error) {
	if err := verifyYear(year); err != nil {
		return nil, err
	}
	params := map[string]any{"time": year}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "stationYearEnergyList", params)
}

// CollectorList lists dataloggers, scoped to a station when stationID
// or nmiCode is set. Paged.
func (c *Client) CollectorList(ctx context.Context, page PageOptions, stationID int64, nmiCode string) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	if stationID != 0 {
		params["stationId"] = stationID
	}
	if nmiCode != "" {
		params["nmiCode"] = nmiCode
	}
	return c.CallEndpoint(ctx, "collectorList", params)
}

// CollectorDetail returns details of one datalogger.
func (c *Client) CollectorDetail(ctx context.Context, collector DeviceRef) (json.RawMessage, error) {
	params := map[string]any{}
	if err := collector.apply("collector", params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "collectorDetail", params)
}

// CollectorDay returns daily statistics for one datalogger.
func (c *Client) CollectorDay(ctx context.Context, collectorSN, day string, timeZone int) (json.RawMessage, error) {
	if collectorSN == "" {
		return nil, &ValidationError{Msg: "pass collector sn as identifier"}
	}
	if err := verifyDay(day); err != nil {
		return nil, err
	}
	params := map[string]any{"time": day, "timeZone": timeZone, "sn": collectorSN}
	return c.CallEndpoint(ctx, "collectorDay", params)
}

// InverterList lists inverters, scoped to a station when stationID or
// nmiCode is set. Paged.
func (c *Client) InverterList(ctx context.Context, page PageOptions, stationID int64, nmiCode string) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	if stationID != 0 {
		params["stationId"] = stationID
	}
	if nmiCode != "" {
		params["nmiCode"] = nmiCode
	}
	return c.CallEndpoint(ctx, "inverterList", params)
}

// InverterDetail returns details of one inverter.
func (c *Client) InverterDetail(ctx context.Context, inverter DeviceRef) (json.RawMessage, error) {
	params := map[string]any{}
	if err := inverter.apply("inverter", params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterDetail", params)
}

// InverterDetailList batch-acquires inverter details for the whole
// account. Paged.
func (c *Client) InverterDetailList(ctx context.Context, page PageOptions) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterDetailList", params)
}

// InverterDay returns the daily generation graph of one inverter.
func (c *Client) InverterDay(ctx context.Context, inverter DeviceRef, currency, day string, timeZone int) (json.RawMessage, error) {
	if err := verifyDay(day); err != nil {
		return nil, err
	}
	params := map[string]any{"money": currency, "time": day, "timeZone": timeZone}
	if err := inverter.apply("inverter", params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterDay", params)
}

// InverterMonth returns the monthly generation graph of one inverter.
func (c *Client) InverterMonth(ctx context.Context, inverter DeviceRef, currency, month string) (json.RawMessage, error) {
	if err := verifyMonth(month); err != nil {
		return nil, err
	}
	params := map[string]any{"money": currency, "month": month}
	if err := inverter.apply("inverter", params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterMonth", params)
}

// InverterYear returns the yearly generation graph of one inverter.
func (c *Client) InverterYear(ctx context.Context, inverter DeviceRef, currency, year string) (json.RawMessage, error) {
	if err := verifyYear(year); err != nil {
		return nil, err
	}
	params := map[string]any{"money": currency, "year": year}
	if err := inverter.apply("inverter", params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterYear", params)
}

// InverterAll returns the cumulative generation graph of one inverter.
func (c *Client) InverterAll(ctx context.Context, inverter DeviceRef, currency string) (json.RawMessage, error) {
	params := map[string]any{"money": currency}
	if err := inverter.apply("inverter", params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterAll", params)
}

// InverterShelfTime returns warranty shelf data for the given inverter
// serials. Paged.
func (c *Client) InverterShelfTime(ctx context.Context, page PageOptions, serials []string) (json.RawMessage, error) {
	if len(serials) == 0 {
		return nil, &ValidationError{Msg: "pass at least one inverter sn"}
	}
	params := map[string]any{"sn": strings.Join(serials, ",")}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "inverterShelfTime", params)
}

// AlarmQuery scopes an alarm listing. Exactly one of StationID or
// DeviceSN selects the source; Begin and End bound the range as
// YYYY-MM-DD dates.
type AlarmQuery struct {
	StationID int64
	DeviceSN  string
	Begin     string
	End       string
	NMICode   string
}

// AlarmList lists alarms for a station or a device within a date range.
// Paged.
func (c *Client) AlarmList(ctx context.Context, page PageOptions, query AlarmQuery) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	switch {
	case query.StationID != 0 && query.DeviceSN == "":
		params["stationId"] = query.StationID
	case query.StationID == 0 && query.DeviceSN != "":
		params["alarmDeviceSn"] = query.DeviceSN
	default:
		return nil, &ValidationError{Msg: "pass exactly one of station id or device sn as identifier"}
	}
	if err := verifyDay(query.Begin); err != nil {
		return nil, err
	}
	if err := verifyDay(query.End); err != nil {
		return nil, err
	}
	params["alarmBeginTime"] = query.Begin
	params["alarmEndTime"] = query.End
	if query.NMICode != "" {
		params["nmiCode"] = query.NMICode
	}
	return c.CallEndpoint(ctx, "alarmList", params)
}

// EpmList lists power meters, scoped to a station when stationID is
// set. Paged.
func (c *Client) EpmList(ctx context.Context, page PageOptions, stationID int64) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	if stationID != 0 {
		params["stationId"] = stationID
	}
	return c.CallEndpoint(ctx, "epmList", params)
}

// EpmDetail returns details of one power meter.
func (c *Client) EpmDetail(ctx context.Context, epmSN string) (json.RawMessage, error) {
	if epmSN == "" {
		return nil, &ValidationError{Msg: "pass epm sn as identifier"}
	}
	return c.CallEndpoint(ctx, "epmDetail", map[string]any{"sn": epmSN})
}

// EpmDay returns the daily graph of one power meter. searchInfo selects
// the measured fields, comma-separated (e.g. "u_ac1,i_ac1,p_load").
func (c *Client) EpmDay(ctx context.Context, epmSN, searchInfo, day string, timeZone int) (json.RawMessage, error) {
	if epmSN == "" {
		return nil, &ValidationError{Msg: "pass epm sn as identifier"}
	}
	if err := verifyDay(day); err != nil {
		return nil, err
	}
	// The vendor spells this key lowercase here, unlike the other
	// graph endpoints.
	params := map[string]any{
		"searchinfo": searchInfo,
		"sn":         epmSN,
		"time":       day,
		"timezone":   timeZone,
	}
	return c.CallEndpoint(ctx, "epmDay", params)
}

// EpmMonth returns the monthly graph of one power meter.
func (c *Client) EpmMonth(ctx context.Context, epmSN, month string) (json.RawMessage, error) {
	if epmSN == "" {
		return nil, &ValidationError{Msg: "pass epm sn as identifier"}
	}
	if err := verifyMonth(month); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "epmMonth", map[string]any{"sn": epmSN, "month": month})
}

// EpmYear returns the yearly graph of one power meter.
func (c *Client) EpmYear(ctx context.Context, epmSN, year string) (json.RawMessage, error) {
	if epmSN == "" {
		return nil, &ValidationError{Msg: "pass epm sn as identifier"}
	}
	if err := verifyYear(year); err != nil {
		return nil, err
	}
	return c.CallEndpoint(ctx, "epmYear", map[string]any{"sn": epmSN, "year": year})
}

// EpmAll returns the cumulative graph of one power meter.
func (c *Client) EpmAll(ctx context.Context, epmSN string) (json.RawMessage, error) {
	if epmSN == "" {
		return nil, &ValidationError{Msg: "pass epm sn as identifier"}
	}
	return c.CallEndpoint(ctx, "epmAll", map[string]any{"sn": epmSN})
}

// WeatherList lists weather records per station, scoped to a station
// when stationID or nmiCode is set. Paged.
func (c *Client) WeatherList(ctx context.Context, page PageOptions, stationID int64, nmiCode string) (json.RawMessage, error) {
	params := map[string]any{}
	if err := page.apply(params); err != nil {
		return nil, err
	}
	if stationID != 0 {
		params["stationId"] = stationID
	}
	if nmiCode != "" {
		params["nmiCode"] = nmiCode
	}
	return c.CallEndpoint(ctx, "weatherList", params)
}

// WeatherDetail returns weather details for one instrument.
func (c *Client) WeatherDetail(ctx context.Context, instrumentSN string) (json.RawMessage, error) {
	if instrumentSN == "" {
		return nil, &ValidationError{Msg: "pass instrument sn as identifier"}
	}
	return c.CallEndpoint(ctx, "weatherDetail", map[string]any{"sn": instrumentSN})
}
