package mocks

import (
	"bytes"
	"io"
	"net/http"
)

// MockHTTPClient is a scriptable HTTPClient for gateway client tests. It
// records every outbound request so tests can assert how many calls were
// made (or that none were).
type MockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
	Calls  []*http.Request
}

// NewMockHTTPClient creates a mock client; doFunc may be nil to answer every
// call with an empty JSON success body.
func NewMockHTTPClient(doFunc func(req *http.Request) (*http.Response, error)) *MockHTTPClient {
	return &MockHTTPClient{
		DoFunc: doFunc,
		Calls:  []*http.Request{},
	}
}

// Do records the request and runs the scripted function
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.Calls = append(m.Calls, req)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(`{"ResponseHeader":{}}`)),
		Header:     make(http.Header),
	}, nil
}

// Reset clears recorded calls
func (m *MockHTTPClient) Reset() {
	m.Calls = []*http.Request{}
}
