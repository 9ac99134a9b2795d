package soliscloud

import (
	"context"
	"io"
	"net/http"
	"reflect"
	"testing"
)

func TestStationIDs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Vendor serializes some ids as strings, some as numbers.
		_, _ = io.WriteString(w, `{"code":"0","msg":"success","data":{"page":{"records":[{"id":"1298491919448891648"},{"id":42}]}}}`)
	})

	ids, err := client.StationIDs(context.Background(), "")
	if err != nil {
		t.Fatalf("StationIDs: %v", err)
	}
	want := []int64{1298491919448891648, 42}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestInverterIDsPagesAtMaximum(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"pageNo":1,"pageSize":100}` {
			t.Errorf("body = %s, want full page request", body)
		}
		_, _ = io.WriteString(w, `{"code":"0","msg":"success","data":{"records":[]}}`)
	})

	ids, err := client.InverterIDs(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("InverterIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
}
