package saferpay

import (
	"encoding/base64"
	"net/http"
)

// Credentials supplies the pre-built authentication header set attached to
// every outbound gateway call.
type Credentials interface {
	Apply(h http.Header)
}

// BasicCredentials implements Credentials using HTTP Basic authentication
// with the API username/password issued in the Saferpay backend.
type BasicCredentials struct {
	Username string
	Password string
}

// Apply sets the Authorization header
func (c BasicCredentials) Apply(h http.Header) {
	token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	h.Set("Authorization", "Basic "+token)
}
