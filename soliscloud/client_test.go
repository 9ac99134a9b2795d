package soliscloud

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithLimiter(NopLimiter{})}, opts...)
	client, err := New(Config{
		KeyID:  testKeyID,
		Secret: testSecret,
		Domain: server.URL,
	}, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestCallSignsAndDispatches(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != ResourcePrefix+"stationDetail" {
			t.Errorf("path = %s", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"id":300}` {
			t.Errorf("body = %s", body)
		}

		sum := md5.Sum(body)
		if got := r.Header.Get("Content-MD5"); got != base64.StdEncoding.EncodeToString(sum[:]) {
			t.Errorf("Content-MD5 %q does not match body digest", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if _, err := time.Parse(http.TimeFormat, r.Header.Get("Date")); err != nil {
			t.Errorf("Date header %q not RFC-1123: %v", r.Header.Get("Date"), err)
		}
		if got := r.Header.Get("Authorization"); got != wantAuthForRequest(body, r.Header.Get("Date"), r.URL.Path) {
			t.Errorf("Authorization = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":"0","msg":"success","data":{"id":300,"stationName":"Roof"}}`)
	})

	data, err := client.Call(context.Background(), ResourcePrefix+"stationDetail", map[string]any{"id": 300})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(data) != `{"id":300,"stationName":"Roof"}` {
		t.Errorf("payload = %s", data)
	}
}

// wantAuthForRequest recomputes the expected signature from the request
// the server actually received.
func wantAuthForRequest(body []byte, date, resource string) string {
	headers, err := signHeaders(testKeyID, testSecret, http.MethodPost, body, resource, mustParseDate(date))
	if err != nil {
		return "signHeaders failed: " + err.Error()
	}
	return headers.Get("Authorization")
}

func mustParseDate(date string) time.Time {
	t, _ := time.Parse(http.TimeFormat, date)
	return t
}

func TestCallRejectsForeignResource(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	})
	_, err := client.Call(context.Background(), "/v2/other", nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCallVendorError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"B0102","msg":"account auth failed","data":null}`)
	})
	_, err := client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "B0102" {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestCallAccountFault(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"1","msg":"数据异常 请联系管理员","data":null}`)
	})
	_, err := client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var acctErr *AccountError
	if !errors.As(err, &acctErr) {
		t.Fatalf("expected AccountError, got %v", err)
	}
	if Retryable(err) {
		t.Error("account fault must not be retryable")
	}
}

func TestCallClockSkew(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	})
	_, err := client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if !httpErr.ClockSkew() {
		t.Error("status 408 not reported as clock skew")
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		t.Error("clock skew misclassified as network error")
	}
}

func TestCallHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", httpErr.StatusCode)
	}
	if !Retryable(err) {
		t.Error("5xx should be retryable")
	}
}

func TestCallMalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway error</html>`)
	})
	_, err := client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestCallTimeout(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(300 * time.Millisecond)
		_, _ = io.WriteString(w, `{"code":"0","msg":"success","data":null}`)
	}, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, err := client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !netErr.Timeout {
		t.Error("deadline expiry not flagged as timeout")
	}
	if !Retryable(err) {
		t.Error("timeouts should be retryable by the caller")
	}

	time.Sleep(350 * time.Millisecond)
	if got := requests.Load(); got != 1 {
		t.Errorf("sent %d requests, want exactly 1 (no hidden retries)", got)
	}
}

func TestCallConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // refuse all connections

	client, err := New(Config{KeyID: testKeyID, Secret: testSecret, Domain: server.URL},
		WithLimiter(NopLimiter{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Call(context.Background(), ResourcePrefix+"userStationList", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.Timeout {
		t.Error("connection refusal misreported as timeout")
	}
}

func TestCallCancellationPropagates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := client.Call(ctx, ResourcePrefix+"userStationList", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestCallRecordsShapes(t *testing.T) {
	bodies := []string{
		`{"code":"0","msg":"success","data":{"page":{"records":[{"id":1},{"id":2}]}}}`,
		`{"code":"0","msg":"success","data":{"records":[{"id":1},{"id":2}]}}`,
	}
	for _, body := range bodies {
		resp := body
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, resp)
		})
		records, err := client.CallRecords(context.Background(), ResourcePrefix+"userStationList", nil)
		if err != nil {
			t.Fatalf("CallRecords: %v", err)
		}
		if string(records) != `[{"id":1},{"id":2}]` {
			t.Errorf("records = %s", records)
		}
	}
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	for _, cfg := range []Config{
		{Secret: testSecret},
		{KeyID: testKeyID},
		{KeyID: "  ", Secret: testSecret},
	} {
		_, err := New(cfg)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("config %+v: expected ConfigError, got %v", cfg, err)
		}
	}
}
