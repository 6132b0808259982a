// Package mirror is the community-mirror failover engine. A download walks a
// fixed mirror list in order, keeps the first body that looks like a real
// archive, and remembers the winning mirror for a short while so the next
// request tries it first.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/httpclient"
	"github.com/osumirror/osu-mirror/internal/metrics"
)

const (
	probeTimeout = 5 * time.Second
	stickyTTL    = 20 * time.Second
	userAgent    = "osu-mirror-rs/1.0"
)

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ErrAllMirrorsFailed is returned when every mirror in the list was probed
// and none produced a valid archive.
var ErrAllMirrorsFailed = errors.New("all mirrors failed to provide beatmapset")

// MirrorURLs builds the ordered candidate list for one set. nv selects the
// video-stripped variant on mirrors that support it.
func MirrorURLs(id int64, noVideo bool) []string {
	nv := "0"
	if noVideo {
		nv = "1"
	}
	urls := []string{
		fmt.Sprintf("https://api.nerinyan.moe/d/%d?nv=%s", id, nv),
		fmt.Sprintf("https://catboy.best/d/%d?nv=%s", id, nv),
		fmt.Sprintf("https://osu.direct/api/d/%d?nv=%s", id, nv),
	}
	if noVideo {
		urls = append(urls, fmt.Sprintf("https://beatconnect.io/b/%d?novideo=1", id))
	} else {
		urls = append(urls, fmt.Sprintf("https://beatconnect.io/b/%d", id))
	}
	return urls
}

// Downloader probes mirrors with a short per-request timeout and validates
// every body against the ZIP magic before accepting it.
type Downloader struct {
	http *http.Client
	log  zerolog.Logger

	// URLs builds the candidate list; replaceable in tests.
	URLs func(id int64, noVideo bool) []string

	mu        sync.Mutex
	stickyURL string
	stickyAt  time.Time
	now       func() time.Time
}

func NewDownloader(log zerolog.Logger) *Downloader {
	return &Downloader{
		http: httpclient.WithTimeout(probeTimeout),
		log:  log.With().Str("component", "mirror").Logger(),
		URLs: MirrorURLs,
		now:  time.Now,
	}
}

// Download fetches one archive, walking the mirror list in sticky-first
// order. Probe failures are logged and skipped; only a fully exhausted list
// is an error.
func (d *Downloader) Download(ctx context.Context, id int64, noVideo bool) ([]byte, error) {
	urls := d.ordered(d.URLs(id, noVideo))
	for _, u := range urls {
		data, ok := d.probe(ctx, u)
		if !ok {
			continue
		}
		d.remember(u)
		return data, nil
	}
	return nil, ErrAllMirrorsFailed
}

// ordered moves the sticky mirror's URL to the front when the sticky entry
// is still fresh. The list never gains duplicates.
func (d *Downloader) ordered(urls []string) []string {
	d.mu.Lock()
	sticky := d.stickyURL
	fresh := sticky != "" && d.now().Sub(d.stickyAt) < stickyTTL
	d.mu.Unlock()
	if !fresh {
		return urls
	}
	out := make([]string, 0, len(urls))
	out = append(out, sticky)
	for _, u := range urls {
		if u != sticky {
			out = append(out, u)
		}
	}
	return out
}

func (d *Downloader) remember(url string) {
	d.mu.Lock()
	d.stickyURL = url
	d.stickyAt = d.now()
	d.mu.Unlock()
}

// probe performs one GET against a mirror. Transport errors, 5xx statuses
// and non-ZIP bodies all count as a miss, never as a pipeline error.
func (d *Downloader) probe(ctx context.Context, rawURL string) ([]byte, bool) {
	d.log.Info().Str("url", rawURL).Msg("mirror probe start")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		d.log.Warn().Str("url", rawURL).Err(err).Msg("mirror request build failed")
		metrics.MirrorProbesTotal.WithLabelValues(mirrorHost(rawURL), "error").Inc()
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := d.http.Do(req)
	if err != nil {
		d.log.Warn().Str("url", rawURL).Err(err).Msg("mirror request failed")
		metrics.MirrorProbesTotal.WithLabelValues(mirrorHost(rawURL), "error").Inc()
		return nil, false
	}
	defer resp.Body.Close()

	d.log.Info().Str("url", rawURL).Int("status", resp.StatusCode).Msg("mirror responded")
	if resp.StatusCode >= 500 {
		metrics.MirrorProbesTotal.WithLabelValues(mirrorHost(rawURL), "server_error").Inc()
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.log.Warn().Str("url", rawURL).Err(err).Msg("mirror body read failed")
		metrics.MirrorProbesTotal.WithLabelValues(mirrorHost(rawURL), "error").Inc()
		return nil, false
	}
	if !isValidZip(body) {
		d.log.Warn().Str("url", rawURL).Int("bytes", len(body)).Msg("mirror returned non-zip")
		metrics.MirrorProbesTotal.WithLabelValues(mirrorHost(rawURL), "invalid").Inc()
		return nil, false
	}

	d.log.Info().Str("url", rawURL).Int("bytes", len(body)).Msg("mirror download ok")
	metrics.MirrorProbesTotal.WithLabelValues(mirrorHost(rawURL), "ok").Inc()
	return body, true
}

func isValidZip(body []byte) bool {
	if len(body) < len(zipMagic) {
		return false
	}
	for i, b := range zipMagic {
		if body[i] != b {
			return false
		}
	}
	return true
}

func mirrorHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
