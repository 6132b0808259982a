package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var zipBody = append([]byte("PK\x03\x04"), []byte("archive")...)

func newTestDownloader(urls func(id int64, noVideo bool) []string) *Downloader {
	d := NewDownloader(zerolog.Nop())
	d.URLs = urls
	return d
}

func TestMirrorURLs(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		noVideo bool
		want    []string
	}{
		{"with video", 1414, false, []string{
			"https://api.nerinyan.moe/d/1414?nv=0",
			"https://catboy.best/d/1414?nv=0",
			"https://osu.direct/api/d/1414?nv=0",
			"https://beatconnect.io/b/1414",
		}},
		{"no video", 1414, true, []string{
			"https://api.nerinyan.moe/d/1414?nv=1",
			"https://catboy.best/d/1414?nv=1",
			"https://osu.direct/api/d/1414?nv=1",
			"https://beatconnect.io/b/1414?novideo=1",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MirrorURLs(tc.id, tc.noVideo)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d urls, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("url[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestDownload_firstMirrorWins(t *testing.T) {
	var hitA, hitB int
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitA++
		if ua := r.Header.Get("User-Agent"); ua != "osu-mirror-rs/1.0" {
			t.Errorf("user agent = %q", ua)
		}
		w.Write(zipBody)
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitB++
		w.Write(zipBody)
	}))
	defer b.Close()

	d := newTestDownloader(func(int64, bool) []string { return []string{a.URL, b.URL} })
	data, err := d.Download(context.Background(), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(zipBody) {
		t.Errorf("body = %q", data)
	}
	if hitA != 1 || hitB != 0 {
		t.Errorf("hits = %d/%d, want 1/0", hitA, hitB)
	}
}

func TestDownload_failover(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer broken.Close()
	notZip := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>rate limited</html>"))
	}))
	defer notZip.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBody)
	}))
	defer good.Close()

	d := newTestDownloader(func(int64, bool) []string {
		return []string{broken.URL, notZip.URL, good.URL}
	})
	data, err := d.Download(context.Background(), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(zipBody) {
		t.Errorf("body = %q", data)
	}
}

func TestDownload_allMirrorsFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer broken.Close()

	d := newTestDownloader(func(int64, bool) []string { return []string{broken.URL, broken.URL} })
	_, err := d.Download(context.Background(), 1, false)
	if !errors.Is(err, ErrAllMirrorsFailed) {
		t.Fatalf("err = %v, want ErrAllMirrorsFailed", err)
	}
}

func TestDownload_stickyMirror(t *testing.T) {
	var hitA int
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitA++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBody)
	}))
	defer b.Close()

	base := time.Now()
	clock := base
	d := newTestDownloader(func(int64, bool) []string { return []string{a.URL, b.URL} })
	d.now = func() time.Time { return clock }

	// First download fails over to b, which becomes sticky.
	if _, err := d.Download(context.Background(), 1, false); err != nil {
		t.Fatal(err)
	}
	if hitA != 1 {
		t.Fatalf("first download probed a %d times, want 1", hitA)
	}

	// Within the TTL the winner goes first, so a is skipped entirely.
	clock = base.Add(10 * time.Second)
	if _, err := d.Download(context.Background(), 1, false); err != nil {
		t.Fatal(err)
	}
	if hitA != 1 {
		t.Errorf("sticky download probed a again (%d hits)", hitA)
	}

	// After the TTL the list reverts to its natural order.
	clock = base.Add(40 * time.Second)
	if _, err := d.Download(context.Background(), 1, false); err != nil {
		t.Fatal(err)
	}
	if hitA != 2 {
		t.Errorf("expired sticky should probe a first again (hits = %d)", hitA)
	}
}

func TestIsValidZip(t *testing.T) {
	tests := []struct {
		body []byte
		want bool
	}{
		{zipBody, true},
		{[]byte("PK\x03\x04"), true},
		{[]byte("PK\x05\x06"), false},
		{[]byte("<html>"), false},
		{[]byte("PK"), false},
		{nil, false},
	}
	for _, tc := range tests {
		if got := isValidZip(tc.body); got != tc.want {
			t.Errorf("isValidZip(%q) = %v, want %v", tc.body, got, tc.want)
		}
	}
}
