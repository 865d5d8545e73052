// Package testutil provides shared helpers for handler and flow tests:
// request builders, response decoding against the service's error envelope,
// and context stamping that mirrors the middleware chain.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "haven/pkg/domain-errors"
)

// NewJSONRequest builds a request with a JSON-marshaled body and the JSON
// content type. A nil body sends no payload.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err, "marshal request body")

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest builds a bodyless request.
func NewRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// DoRequest runs one request through the handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeResponse unmarshals the response body into T, failing the test on
// malformed JSON.
func DecodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "unmarshal response body")
	return result
}

// ErrorEnvelope is the wire shape every error response uses. Description is
// empty for internal errors, which never expose detail.
type ErrorEnvelope struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// DecodeError unmarshals the response body as an error envelope.
func DecodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	return DecodeResponse[ErrorEnvelope](t, rr)
}

// AssertError asserts the response status and the domain error code in one
// step.
func AssertError(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantCode dErrors.Code) {
	t.Helper()

	assert.Equal(t, wantStatus, rr.Code, "unexpected status code")
	assert.Equal(t, string(wantCode), DecodeError(t, rr).Code, "unexpected error code")
}
