// Package httpx holds the shared HTTP client used for external REST calls
// (the Steam public API). LLM transports keep their own clients.
package httpx

import (
	"net/http"
	"time"
)

const externalHTTPTimeout = 30 * time.Second

var ExternalClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
