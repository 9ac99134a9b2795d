package soliscloud

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// ResourcePrefix is the path prefix shared by every API endpoint.
	ResourcePrefix = "/v1/api/"

	contentType = "application/json"
)

// Clock supplies the timestamp bound into each signature. Injectable so
// tests can pin the Date header and assert exact signatures.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// contentMD5 returns the base64 MD5 digest the vendor expects in the
// Content-MD5 header. An empty body digests the empty byte sequence.
func contentMD5(body []byte) string {
	sum := md5.Sum(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// canonicalString assembles the exact byte sequence the server verifies:
// verb, content digest, content type, date and resource, one per line,
// in that order.
func canonicalString(verb, digest, date, resource string) string {
	return strings.Join([]string{verb, digest, contentType, date, resource}, "\n")
}

// signHeaders computes the Content-MD5, Content-Type, Date and
// Authorization headers for one outbound call. The date embedded in the
// canonical string is echoed verbatim in the Date header; the server
// rejects the call if they differ. Signatures are never cached: the
// digest depends on the exact body bytes and timestamp of this call.
func signHeaders(keyID string, secret []byte, verb string, body []byte, resource string, now time.Time) (http.Header, error) {
	if keyID == "" {
		return nil, &ConfigError{Reason: "api key id is empty"}
	}
	if len(secret) == 0 {
		return nil, &ConfigError{Reason: "api secret is empty"}
	}
	if verb != http.MethodGet && verb != http.MethodPost {
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported verb %q", verb)}
	}

	digest := contentMD5(body)
	date := now.UTC().Format(http.TimeFormat)

	mac := hmac.New(sha1.New, secret)
	mac.Write([]byte(canonicalString(verb, digest, date, resource)))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := make(http.Header)
	headers.Set("Content-MD5", digest)
	headers.Set("Content-Type", contentType)
	headers.Set("Date", date)
	headers.Set("Authorization", "API "+keyID+":"+signature)
	return headers, nil
}
