// Package osuapi is the authenticated client for the authoritative osu! API:
// client-credentials token lifecycle with lazy refresh, catalog search with
// opaque cursors, and single-set lookup. Every outbound call, token exchange
// included, holds one permit from the shared rate budget for its duration.
package osuapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/httpclient"
)

const (
	defaultBaseURL  = "https://osu.ppy.sh/api/v2"
	defaultTokenURL = "https://osu.ppy.sh/oauth/token"
)

// Beatmapset is the upstream catalog representation of a set.
type Beatmapset struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	TitleUnicode   *string       `json:"title_unicode"`
	Artist         string        `json:"artist"`
	ArtistUnicode  *string       `json:"artist_unicode"`
	Creator        string        `json:"creator"`
	UserID         *int64        `json:"user_id"`
	Source         *string       `json:"source"`
	Tags           *string       `json:"tags"`
	Status         string        `json:"status"`
	RankedDate     *time.Time    `json:"ranked_date"`
	SubmittedDate  *time.Time    `json:"submitted_date"`
	LastUpdated    *time.Time    `json:"last_updated"`
	BPM            *float64      `json:"bpm"`
	Video          bool          `json:"video"`
	Storyboard     bool          `json:"storyboard"`
	NSFW           bool          `json:"nsfw"`
	FavouriteCount int64         `json:"favourite_count"`
	PlayCount      int64         `json:"play_count"`
	GenreID        *int64        `json:"genre_id"`
	LanguageID     *int64        `json:"language_id"`
	Rating         *float64      `json:"rating"`
	Availability   *Availability `json:"availability"`
	Beatmaps       []Beatmap     `json:"beatmaps"`
}

type Availability struct {
	DownloadDisabled bool `json:"download_disabled"`
}

// Beatmap is the upstream representation of one difficulty.
type Beatmap struct {
	ID               int64    `json:"id"`
	BeatmapsetID     int64    `json:"beatmapset_id"`
	Version          string   `json:"version"`
	Mode             string   `json:"mode"`
	ModeInt          int64    `json:"mode_int"`
	DifficultyRating *float64 `json:"difficulty_rating"`
	AR               *float64 `json:"ar"`
	CS               *float64 `json:"cs"`
	Drain            *float64 `json:"drain"`
	Accuracy         *float64 `json:"accuracy"`
	BPM              *float64 `json:"bpm"`
	TotalLength      int64    `json:"total_length"`
	HitLength        *int64   `json:"hit_length"`
	MaxCombo         *int64   `json:"max_combo"`
	CountCircles     *int64   `json:"count_circles"`
	CountSliders     *int64   `json:"count_sliders"`
	CountSpinners    *int64   `json:"count_spinners"`
	Checksum         *string  `json:"checksum"`
}

// SearchResponse is one page of the catalog search.
type SearchResponse struct {
	Beatmapsets  []Beatmapset `json:"beatmapsets"`
	CursorString *string      `json:"cursor_string"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Client holds the OAuth client credentials and a cached bearer token.
// Token refresh is serialized: the mutex is held across the exchange, so at
// most one refresh is in flight and every waiter sees the new token.
type Client struct {
	http         *http.Client
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	budget       *Budget
	log          zerolog.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

func New(clientID, clientSecret string, log zerolog.Logger) *Client {
	return &Client{
		http:         httpclient.Default(),
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		budget:       SharedBudget(),
		log:          log.With().Str("component", "osuapi").Logger(),
		now:          time.Now,
	}
}

// EnsureToken returns the cached bearer token, refreshing it through a
// credentials-grant exchange when expired.
func (c *Client) EnsureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}
	token, expiry, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = expiry
	return token, nil
}

func (c *Client) authenticate(ctx context.Context) (string, time.Time, error) {
	if err := c.budget.Acquire(ctx); err != nil {
		return "", time.Time{}, err
	}
	defer c.budget.Release()

	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "client_credentials",
		"scope":         "public",
	})
	if err != nil {
		return "", time.Time{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", time.Time{}, fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, msg)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	return tr.AccessToken, c.now().Add(time.Duration(tr.ExpiresIn) * time.Second), nil
}

// SearchBeatmapsets fetches one page of the catalog search. query is the raw
// upstream query ("status=ranked", "sort=updated_desc", ...); cursor is the
// opaque continuation from the previous page, nil for the first.
func (c *Client) SearchBeatmapsets(ctx context.Context, query string, cursor *string) (*SearchResponse, error) {
	u := c.baseURL + "/beatmapsets/search?q=" + url.QueryEscape(query)
	if cursor != nil {
		u += "&cursor_string=" + url.QueryEscape(*cursor)
	}
	var page SearchResponse
	if err := c.getJSON(ctx, u, &page); err != nil {
		return nil, fmt.Errorf("search beatmapsets: %w", err)
	}
	return &page, nil
}

// GetBeatmapset fetches a single set with its difficulties.
func (c *Client) GetBeatmapset(ctx context.Context, id int64) (*Beatmapset, error) {
	var set Beatmapset
	if err := c.getJSON(ctx, fmt.Sprintf("%s/beatmapsets/%d", c.baseURL, id), &set); err != nil {
		return nil, fmt.Errorf("get beatmapset %d: %w", id, err)
	}
	return &set, nil
}

// getJSON performs one authenticated GET under a budget permit. Non-2xx
// responses are errors; the client never retries.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	token, err := c.EnsureToken(ctx)
	if err != nil {
		return err
	}
	if err := c.budget.Acquire(ctx); err != nil {
		return err
	}
	defer c.budget.Release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
