// Package httpclient provides the HTTP clients behind the two outbound
// paths: authenticated osu! API calls and community-mirror probes.
package httpclient

import (
	"net/http"
	"time"
)

// API calls share one pooled client with a generous timeout. Mirror probes
// run on a short-timeout clone of the same transport so a dead mirror is
// abandoned quickly and the engine moves to the next candidate.
const (
	apiTimeout      = 30 * time.Second
	idleConnTimeout = 90 * time.Second
	idlePerHost     = 16
)

var shared = &http.Client{
	Timeout: apiTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: idlePerHost,
		IdleConnTimeout:     idleConnTimeout,
	},
}

// Default returns the shared client for upstream API calls, token
// exchanges included.
func Default() *http.Client { return shared }

// WithTimeout returns a client with the given timeout on a clone of the
// shared transport, keeping its own connection pool.
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := shared.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: t.Clone(),
	}
}
