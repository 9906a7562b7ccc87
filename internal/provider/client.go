package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Token is an OAuth token set returned by the provider.
type Token struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"`
	Athlete      Athlete `json:"athlete"`
}

// Athlete is the provider-side account profile.
type Athlete struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// APIError is a non-2xx response from the provider. RetryAfter is set from
// the Retry-After header on 429 responses.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

// ListOptions narrow an activity listing request. Limit is capped at 200 by
// the provider; zero means the provider default page size.
type ListOptions struct {
	Limit  int
	After  *time.Time
	Before *time.Time
}

// API is the surface the sync service needs from the provider. *Client
// implements it; tests substitute a fake.
type API interface {
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
	ListActivities(ctx context.Context, accessToken string, opts ListOptions) ([]map[string]any, error)
	GetActivity(ctx context.Context, accessToken string, externalID int64) (map[string]any, error)
	GetAthlete(ctx context.Context, accessToken string) (*Athlete, error)
	GetAthleteStats(ctx context.Context, accessToken string, athleteID int64) (map[string]any, error)
}

// Client talks to the external activity provider's REST API.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// NewClient builds a provider client with a bounded request timeout.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthorizeURL is where the browser is sent to start the OAuth flow.
func (c *Client) AuthorizeURL(redirectURL, state string) string {
	q := url.Values{}
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "activity:read_all")
	q.Set("state", state)
	return c.BaseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token set.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	return c.tokenRequest(ctx, form)
}

// Refresh trades a refresh token for a fresh token set.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, form)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tok, nil
}

// ListActivities fetches a page of the athlete's activities as raw JSON
// objects, newest first.
func (c *Client) ListActivities(ctx context.Context, accessToken string, opts ListOptions) ([]map[string]any, error) {
	q := url.Values{}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	q.Set("per_page", strconv.Itoa(limit))
	if opts.After != nil {
		q.Set("after", strconv.FormatInt(opts.After.Unix(), 10))
	}
	if opts.Before != nil {
		q.Set("before", strconv.FormatInt(opts.Before.Unix(), 10))
	}

	body, err := c.get(ctx, accessToken, "/api/v3/athlete/activities?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode activity list: %w", err)
	}
	return raw, nil
}

// GetActivity fetches the detailed representation of one activity.
func (c *Client) GetActivity(ctx context.Context, accessToken string, externalID int64) (map[string]any, error) {
	body, err := c.get(ctx, accessToken, fmt.Sprintf("/api/v3/activities/%d", externalID))
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode activity detail: %w", err)
	}
	return raw, nil
}

// GetAthlete fetches the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	body, err := c.get(ctx, accessToken, "/api/v3/athlete")
	if err != nil {
		return nil, err
	}

	var a Athlete
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("failed to decode athlete: %w", err)
	}
	return &a, nil
}

// GetAthleteStats fetches the provider's aggregate totals for the athlete.
func (c *Client) GetAthleteStats(ctx context.Context, accessToken string, athleteID int64) (map[string]any, error) {
	body, err := c.get(ctx, accessToken, fmt.Sprintf("/api/v3/athletes/%d/stats", athleteID))
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode athlete stats: %w", err)
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests {
			if ra, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				apiErr.RetryAfter = ra
			}
		}
		return nil, apiErr
	}

	return body, nil
}
