package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultBaseURL  = "https://sportspage-feeds.p.rapidapi.com"
	DefaultPageSize = 100
	DefaultMaxSkip  = 2000

	dateLayout = "2006-01-02"
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL  string
	APIKey   string
	APIHost  string
	League   string
	PageSize int
	MaxSkip  int
	Timeout  time.Duration
}

// Client reads games with full-game totals from the sportspage feed
type Client struct {
	baseURL  string
	apiKey   string
	apiHost  string
	league   string
	pageSize int
	maxSkip  int
	http     *http.Client
}

// New creates a feed client
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIHost == "" {
		if u, err := url.Parse(opts.BaseURL); err == nil {
			opts.APIHost = u.Host
		}
	}
	if opts.League == "" {
		opts.League = "NCAAB"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxSkip <= 0 {
		opts.MaxSkip = DefaultMaxSkip
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		apiHost:  opts.APIHost,
		league:   opts.League,
		pageSize: opts.PageSize,
		maxSkip:  opts.MaxSkip,
		http:     &http.Client{Timeout: opts.Timeout},
	}
}

// FetchPage fetches one page of games scheduled between from and to
// (inclusive calendar dates), starting at offset skip.
func (c *Client) FetchPage(ctx context.Context, from, to time.Time, skip int) ([]Game, error) {
	q := url.Values{}
	q.Set("league", c.league)
	q.Set("odds", "total")
	q.Set("date", from.Format(dateLayout)+","+to.Format(dateLayout))
	q.Set("skip", strconv.Itoa(skip))
	endpoint := c.baseURL + "/games?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed page (skip=%d): %w", skip, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed page: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}

	return decodePage(body)
}

// Pages walks the feed for the date range, calling fn with each non-empty
// page until a page comes back empty or the skip limit is reached.
func (c *Client) Pages(ctx context.Context, from, to time.Time, fn func([]Game) error) error {
	for skip := 0; skip < c.maxSkip; skip += c.pageSize {
		games, err := c.FetchPage(ctx, from, to, skip)
		if err != nil {
			return err
		}
		log.Printf("[feed] %s..%s skip=%d: %d games", from.Format(dateLayout), to.Format(dateLayout), skip, len(games))
		if len(games) == 0 {
			return nil
		}
		if err := fn(games); err != nil {
			return err
		}
	}
	return nil
}

func decodePage(body []byte) ([]Game, error) {
	var page Response
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding feed page: %w", err)
	}

	games := make([]Game, 0, len(page.Results))
	for i, raw := range page.Results {
		var g Game
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("decoding feed game %d: %w", i, err)
		}
		g.Raw = raw
		games = append(games, g)
	}
	return games, nil
}
