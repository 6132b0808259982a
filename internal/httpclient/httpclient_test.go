package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestDefault_shared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default should return the same client")
	}
	if Default().Timeout != apiTimeout {
		t.Errorf("timeout = %v, want %v", Default().Timeout, apiTimeout)
	}
}

func TestWithTimeout_independentTransport(t *testing.T) {
	c := WithTimeout(5 * time.Second)
	if c.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", c.Timeout)
	}
	if c == Default() {
		t.Fatal("WithTimeout must not return the shared client")
	}
	ct, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatal("transport is not *http.Transport")
	}
	if ct == Default().Transport.(*http.Transport) {
		t.Error("transport must be a clone, not the shared instance")
	}
	if ct.MaxIdleConnsPerHost != idlePerHost || ct.IdleConnTimeout != idleConnTimeout {
		t.Errorf("clone lost transport tuning: %+v", ct)
	}
}
