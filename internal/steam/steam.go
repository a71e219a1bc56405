// Package steam fetches user reviews from the public appreviews API. The
// fetched corpus is the read-only input of the classification pipeline.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reviewbot/internal/domain"
	"reviewbot/internal/httpx"
)

const defaultBaseURL = "https://store.steampowered.com/appreviews"

// Client walks the cursor-paginated appreviews endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	log     *slog.Logger
}

func NewClient(log *slog.Logger) *Client {
	return &Client{http: httpx.ExternalClient, baseURL: defaultBaseURL, log: log}
}

// NewClientWithBaseURL exists for tests pointed at an httptest server.
func NewClientWithBaseURL(baseURL string, client *http.Client, log *slog.Logger) *Client {
	return &Client{http: client, baseURL: strings.TrimSuffix(baseURL, "/"), log: log}
}

type apiResponse struct {
	Success int    `json:"success"`
	Cursor  string `json:"cursor"`
	Reviews []struct {
		RecommendationID string `json:"recommendationid"`
		Review           string `json:"review"`
		TimestampCreated int64  `json:"timestamp_created"`
		VotedUp          bool   `json:"voted_up"`
		VotesUp          int    `json:"votes_up"`
		VotesFunny       int    `json:"votes_funny"`
		CommentCount     int    `json:"comment_count"`
		Author           struct {
			PlaytimeForever float64 `json:"playtime_forever"` // minutes
		} `json:"author"`
	} `json:"reviews"`
}

// FetchOptions bound one fetch pass.
type FetchOptions struct {
	Language  string        // e.g. "schinese"
	PerPage   int           // max 100
	MaxPages  int           // 0 = until the cursor stops moving
	PageDelay time.Duration // politeness pause between pages
}

// FetchAll pages through every review for an app, starting at cursor "*" and
// stopping when the API returns an empty or unchanged cursor, a page with no
// reviews, or the page cap.
func (c *Client) FetchAll(ctx context.Context, appID int, opts FetchOptions) ([]domain.Review, error) {
	if opts.PerPage <= 0 || opts.PerPage > 100 {
		opts.PerPage = 100
	}
	if opts.Language == "" {
		opts.Language = "schinese"
	}

	var all []domain.Review
	cursor := "*"
	for page := 0; opts.MaxPages <= 0 || page < opts.MaxPages; page++ {
		reviews, nextCursor, err := c.fetchPage(ctx, appID, opts, cursor)
		if err != nil {
			return all, err
		}
		all = append(all, reviews...)
		c.log.Debug("fetched review page", "page", page, "reviews", len(reviews), "total", len(all))

		if len(reviews) == 0 || nextCursor == "" || nextCursor == cursor {
			break
		}
		cursor = nextCursor

		if opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(opts.PageDelay):
			}
		}
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, appID int, opts FetchOptions, cursor string) ([]domain.Review, string, error) {
	params := url.Values{
		"json":                     {"1"},
		"cursor":                   {cursor},
		"language":                 {opts.Language},
		"filter":                   {"recent"},
		"purchase_type":            {"all"},
		"num_per_page":             {strconv.Itoa(opts.PerPage)},
		"review_type":              {"all"},
		"day_range":                {"365"},
		"filter_offtopic_activity": {"0"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/%d?%s", c.baseURL, appID, params.Encode()), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("steam reviews fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("steam reviews fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("steam reviews fetch: reading body: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("steam reviews fetch: parsing response: %w", err)
	}
	if parsed.Success != 1 {
		return nil, "", fmt.Errorf("steam reviews fetch: api reported failure")
	}

	reviews := make([]domain.Review, 0, len(parsed.Reviews))
	for _, raw := range parsed.Reviews {
		if raw.RecommendationID == "" {
			continue
		}
		reviews = append(reviews, domain.Review{
			ID:            raw.RecommendationID,
			Text:          strings.TrimSpace(raw.Review),
			Positive:      raw.VotedUp,
			VotesUp:       raw.VotesUp,
			VotesFunny:    raw.VotesFunny,
			CommentCount:  raw.CommentCount,
			PlaytimeHours: raw.Author.PlaytimeForever / 60,
			Language:      opts.Language,
			CreatedAt:     time.Unix(raw.TimestampCreated, 0).UTC(),
		})
	}
	return reviews, parsed.Cursor, nil
}
