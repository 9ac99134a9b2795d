package soliscloud

import "encoding/json"

const successCode = "0"

// envelope is the JSON wrapper returned by every API call.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// decodeEnvelope parses a response body and maps the vendor status to a
// uniform result: the raw payload on success, a typed error otherwise.
// The payload bytes are passed through untouched.
func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Msg: "malformed server response", Err: err}
	}
	if env.Code == "" {
		return nil, &ParseError{Msg: "server response has no status code"}
	}
	if env.Code != successCode {
		if accountFaultMessages[env.Msg] {
			return nil, &AccountError{Code: env.Code, Msg: env.Msg}
		}
		return nil, &APIError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

// unwrapRecords extracts the record array from a paged payload, which
// arrives either as {"page":{"records":[...]}} or as {"records":[...]}.
func unwrapRecords(data json.RawMessage) (json.RawMessage, error) {
	var wrapper struct {
		Page *struct {
			Records json.RawMessage `json:"records"`
		} `json:"page"`
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, &ParseError{Msg: "malformed records payload", Err: err}
	}
	if wrapper.Page != nil && wrapper.Page.Records != nil {
		return wrapper.Page.Records, nil
	}
	if wrapper.Records != nil {
		return wrapper.Records, nil
	}
	return nil, &ParseError{Msg: "records missing from payload"}
}
