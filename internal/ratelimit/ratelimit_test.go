package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAllow_windowBudget(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	l := New(3, time.Minute)
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("a") {
		t.Fatal("4th request within window should be rejected")
	}

	// A different client has its own budget.
	if !l.Allow("b") {
		t.Fatal("other client should be unaffected")
	}

	// Capacity returns as old timestamps age past the window.
	clock = base.Add(time.Minute + time.Second)
	if !l.Allow("a") {
		t.Fatal("request after window should be allowed")
	}
}

func TestAllow_rejectionsNotRecorded(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	l := New(1, time.Minute)
	l.now = func() time.Time { return clock }

	if !l.Allow("a") {
		t.Fatal("first request should pass")
	}
	// Hammering while over budget must not extend the lockout.
	for i := 0; i < 10; i++ {
		clock = clock.Add(time.Second)
		if l.Allow("a") {
			t.Fatal("over-budget request allowed")
		}
	}
	clock = base.Add(time.Minute + time.Second)
	if !l.Allow("a") {
		t.Fatal("client should recover once the original request ages out")
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		hdr    map[string]string
		want   string
	}{
		{"cf header wins", "10.0.0.1:1234",
			map[string]string{"Cf-Connecting-Ip": "1.2.3.4", "X-Forwarded-For": "5.6.7.8"}, "1.2.3.4"},
		{"first forwarded entry", "10.0.0.1:1234",
			map[string]string{"X-Forwarded-For": " 5.6.7.8 , 9.9.9.9"}, "5.6.7.8"},
		{"peer address fallback", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"peer without port", "10.0.0.1", nil, "10.0.0.1"},
		{"no information", "", nil, "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.hdr {
				r.Header.Set(k, v)
			}
			if got := ClientKey(r); got != tc.want {
				t.Errorf("ClientKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	l := New(2, time.Minute)
	rejections := 0
	h := Middleware(l, zerolog.Nop(), func() { rejections++ })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}))

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/d/1", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, w.Code)
		}
	}
	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if body := w.Body.String(); body != "Rate limit exceeded" {
		t.Errorf("body = %q", body)
	}
	if rejections != 1 {
		t.Errorf("rejection hook fired %d times, want 1", rejections)
	}
}
