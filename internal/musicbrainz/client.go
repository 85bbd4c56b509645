// Package musicbrainz implements a FIFO-serialized, rate-limited, retrying
// fetcher for the public release-group service. Grounded on the teacher's
// internal/metadata/scraper_musicbrainz.go (same base URL, same
// User-Agent convention, same single-outstanding-request discipline); the
// teacher's ad hoc chan time.Time limiter is replaced with
// golang.org/x/time/rate, and retry/backoff is new — the teacher scraper
// does not retry.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/selfhosted/crate/internal/apperr"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// ArtistMatch is the top-ranked candidate from findArtistByName.
type ArtistMatch struct {
	MBID  string
	Name  string
	Score int
}

// ReleaseGroup is one admitted release-group from fetchArtistAlbums.
type ReleaseGroup struct {
	MBReleaseGroupID string
	Title            string
	Year             *int
	PrimaryType      string
	SecondaryTypes   []string
}

// Client is a process-wide FIFO queue: callers contend on mu, and the rate
// limiter enforces a 1 req/sec ceiling regardless of how many goroutines
// are waiting.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	mu        sync.Mutex
}

func New(version string) *Client {
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		baseURL:   defaultBaseURL,
		userAgent: fmt.Sprintf("crate/%s (selfhosted)", version),
	}
}

var firstYearRe = regexp.MustCompile(`^\d{4}`)

// FindArtistByName ranks candidates by (score + exactCaseInsensitiveMatch
// bonus - position) and returns the top one, or nil if the search returned
// nothing.
func (c *Client) FindArtistByName(ctx context.Context, name string) (*ArtistMatch, error) {
	q := fmt.Sprintf(`artist:"%s"`, name)
	path := fmt.Sprintf("/artist?query=%s&limit=5&fmt=json", url.QueryEscape(q))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Artists []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Score int    `json:"score"`
		} `json:"artists"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "decode musicbrainz artist search response", err)
	}
	if len(parsed.Artists) == 0 {
		return nil, nil
	}

	best := -1
	bestScore := -1 << 31
	for i, a := range parsed.Artists {
		score := a.Score - i
		if strings.EqualFold(a.Name, name) {
			score += 20
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	top := parsed.Artists[best]
	return &ArtistMatch{MBID: top.ID, Name: top.Name, Score: top.Score}, nil
}

// FetchArtistAlbums paginates release-group?artist={mbid}, admitting only
// Album/Compilation primary-types.
func (c *Client) FetchArtistAlbums(ctx context.Context, mbid string) ([]ReleaseGroup, error) {
	var out []ReleaseGroup
	offset := 0

	for {
		path := fmt.Sprintf("/release-group?artist=%s&limit=100&offset=%d&fmt=json", url.QueryEscape(mbid), offset)
		body, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}

		var parsed struct {
			ReleaseGroupCount int `json:"release-group-count"`
			ReleaseGroups     []struct {
				ID               string   `json:"id"`
				Title            string   `json:"title"`
				PrimaryType      string   `json:"primary-type"`
				SecondaryTypes   []string `json:"secondary-types"`
				FirstReleaseDate string   `json:"first-release-date"`
			} `json:"release-groups"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "decode musicbrainz release-group response", err)
		}

		if len(parsed.ReleaseGroups) == 0 {
			break
		}

		for _, rg := range parsed.ReleaseGroups {
			if rg.PrimaryType != "Album" && rg.PrimaryType != "Compilation" {
				continue
			}
			var year *int
			if m := firstYearRe.FindString(rg.FirstReleaseDate); m != "" {
				if y, err := strconv.Atoi(m); err == nil {
					year = &y
				}
			}
			out = append(out, ReleaseGroup{
				MBReleaseGroupID: rg.ID,
				Title:            rg.Title,
				Year:             year,
				PrimaryType:      rg.PrimaryType,
				SecondaryTypes:   rg.SecondaryTypes,
			})
		}

		offset += len(parsed.ReleaseGroups)
		if offset >= parsed.ReleaseGroupCount {
			break
		}
	}

	return out, nil
}

// get performs a single logical request with a retry policy: up to 2
// retries, Retry-After honored on 429/503, otherwise exponential backoff,
// network errors retried once.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	netRetried := false
	const maxAttempts = 3 // initial attempt + 2 retries

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.NewUpstreamTimeout(err)
		}

		body, status, retryAfter, err := c.attempt(ctx, path)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts-1 && !netRetried {
				netRetried = true
				continue
			}
			return nil, apperr.NewUpstreamTimeout(err)
		}

		if status == http.StatusOK {
			return body, nil
		}

		if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
			if attempt < maxAttempts-1 {
				wait := backoffDuration(retryAfter, attempt)
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return nil, apperr.NewUpstreamTimeout(ctx.Err())
				}
				continue
			}
		}

		return nil, apperr.NewUpstreamHTTP(status, string(body))
	}

	return nil, apperr.NewUpstreamTimeout(lastErr)
}

func (c *Client) attempt(ctx context.Context, path string) (body []byte, status int, retryAfterSeconds int, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, err
	}

	retryAfterSeconds = -1
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if n, err := strconv.Atoi(ra); err == nil {
			retryAfterSeconds = n
		}
	}

	return b, resp.StatusCode, retryAfterSeconds, nil
}

// backoffDuration honors Retry-After in seconds when present and finite;
// otherwise 500ms * 2^attempt.
func backoffDuration(retryAfterSeconds, attempt int) time.Duration {
	if retryAfterSeconds >= 0 {
		return time.Duration(retryAfterSeconds) * time.Second
	}
	return 500 * time.Millisecond * time.Duration(1<<attempt)
}
