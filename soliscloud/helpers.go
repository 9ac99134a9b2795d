package soliscloud

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// StationIDs returns the IDs of all stations under the account, or all
// stations under the given NMI code when set.
func (c *Client) StationIDs(ctx context.Context, nmiCode string) ([]int64, error) {
	records, err := c.UserStationList(ctx, PageOptions{PageNo: 1, PageSize: MaxPageSize}, nmiCode)
	if err != nil {
		return nil, err
	}
	return recordIDs(records)
}

// InverterIDs returns the IDs of all inverters under the account,
// scoped to one station when stationID is set.
func (c *Client) InverterIDs(ctx context.Context, stationID int64, nmiCode string) ([]int64, error) {
	records, err := c.InverterList(ctx, PageOptions{PageNo: 1, PageSize: MaxPageSize}, stationID, nmiCode)
	if err != nil {
		return nil, err
	}
	return recordIDs(records)
}

// recordID tolerates the vendor serializing ids as numbers or strings.
type recordID int64

func (r *recordID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*r = 0
		return nil
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*r = recordID(id)
	return nil
}

func recordIDs(records json.RawMessage) ([]int64, error) {
	var entries []struct {
		ID recordID `json:"id"`
	}
	if err := json.Unmarshal(records, &entries); err != nil {
		return nil, &ParseError{Msg: "malformed record list", Err: err}
	}
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, int64(entry.ID))
	}
	return ids, nil
}
