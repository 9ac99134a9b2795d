package soliscloud

import (
	"errors"
	"testing"
)

func TestDecodeEnvelopeSuccess(t *testing.T) {
	data, err := decodeEnvelope([]byte(`{"code":"0","msg":"success","data":{"item":1}}`))
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if string(data) != `{"item":1}` {
		t.Errorf("payload altered: %s", data)
	}
}

func TestDecodeEnvelopeAPIError(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"code":"B0102","msg":"auth failed","data":null}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "B0102" || apiErr.Msg != "auth failed" {
		t.Errorf("got code=%q msg=%q", apiErr.Code, apiErr.Msg)
	}
}

func TestDecodeEnvelopeAccountFault(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"code":"1","msg":"数据异常 请联系管理员","data":null}`))
	var acctErr *AccountError
	if !errors.As(err, &acctErr) {
		t.Fatalf("expected AccountError, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("account fault misclassified as generic APIError")
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	for _, body := range []string{"not json", "", `{"msg":"no code"}`, `[1,2]`} {
		_, err := decodeEnvelope([]byte(body))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("body %q: expected ParseError, got %v", body, err)
		}
	}
}

func TestUnwrapRecords(t *testing.T) {
	paged, err := unwrapRecords([]byte(`{"page":{"records":[{"item":1},{"item":2}]}}`))
	if err != nil {
		t.Fatalf("paged: %v", err)
	}
	if string(paged) != `[{"item":1},{"item":2}]` {
		t.Errorf("paged records = %s", paged)
	}

	flat, err := unwrapRecords([]byte(`{"records":[{"item":1}]}`))
	if err != nil {
		t.Fatalf("flat: %v", err)
	}
	if string(flat) != `[{"item":1}]` {
		t.Errorf("flat records = %s", flat)
	}
}

func TestUnwrapRecordsMissing(t *testing.T) {
	_, err := unwrapRecords([]byte(`{"total":3}`))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
