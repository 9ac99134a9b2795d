package soliscloud

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type sleepLimiter struct {
	d time.Duration
}

func (l sleepLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.d):
		return nil
	}
}

func gatherClientMetrics(t *testing.T) map[string]float64 {
	t.Helper()
	registry := prometheus.NewRegistry()
	registry.MustRegister(MetricsCollectors()...)
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				if label.GetName() == "endpoint" {
					key += "/" + label.GetValue()
				}
			}
			switch {
			case metric.GetHistogram() != nil:
				values[key] = metric.GetHistogram().GetSampleSum()
			case metric.GetGauge() != nil:
				values[key] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			}
		}
	}
	return values
}

func TestCallDurationExcludesGateWait(t *testing.T) {
	gateDelay := 150 * time.Millisecond
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"0","msg":"success","data":{}}`)
	}, WithLimiter(sleepLimiter{d: gateDelay}))

	if _, err := client.Call(context.Background(), ResourcePrefix+"timingCheck", nil); err != nil {
		t.Fatalf("Call: %v", err)
	}

	values := gatherClientMetrics(t)
	sum, ok := values["soliscloud_api_call_duration_seconds/timingCheck"]
	if !ok {
		t.Fatalf("duration histogram missing timingCheck sample")
	}
	if sum >= gateDelay.Seconds() {
		t.Errorf("duration sum = %vs, gate wait of %vs leaked into it", sum, gateDelay.Seconds())
	}
}

func TestLastStatusResetOnTransportFailure(t *testing.T) {
	okClient, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"0","msg":"success","data":{}}`)
	})
	if _, err := okClient.Call(context.Background(), ResourcePrefix+"statusCheck", nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := gatherClientMetrics(t)["soliscloud_api_last_status_code"]; got != 200 {
		t.Fatalf("last status after success = %v, want 200", got)
	}

	badClient, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()
	if _, err := badClient.Call(context.Background(), ResourcePrefix+"statusCheck", nil); err == nil {
		t.Fatalf("Call against closed server succeeded")
	}
	if got := gatherClientMetrics(t)["soliscloud_api_last_status_code"]; got != 0 {
		t.Errorf("last status after transport failure = %v, want 0", got)
	}
}
