// Package hemis is a thin client for the university's HEMIS student
// information system. It covers the three surfaces the API depends on:
// student credential login, the paged roster listing used by the sync job,
// and the university profile.
package hemis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors callers translate into HTTP statuses.
var (
	// ErrBadCredentials means HEMIS rejected the login/password pair.
	ErrBadCredentials = errors.New("hemis: bad credentials")
	// ErrUnavailable means HEMIS timed out or answered with a server error.
	ErrUnavailable = errors.New("hemis: upstream unavailable")
)

// Config holds connection settings for the HEMIS API.
type Config struct {
	BaseURL string
	// Token is the long-lived service token used for roster reads.
	Token   string
	Timeout time.Duration
}

// Client talks to HEMIS over HTTP. Zero-value is not usable; construct
// with New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// New builds a HEMIS client. The timeout applies per request; HEMIS is
// slow enough that callers should treat a timeout as upstream trouble, not
// as a verdict on the credentials.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hemis base url must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "hemis").Logger(),
	}, nil
}

// Login authenticates a student against HEMIS and fetches their account
// profile with the issued token. Wrong credentials come back as
// ErrBadCredentials; timeouts and 5xx answers as ErrUnavailable.
func (c *Client) Login(ctx context.Context, login, password string) (*Account, error) {
	body, err := json.Marshal(map[string]string{
		"login":    login,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("hemis login unreachable")
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrBadCredentials
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Msg("hemis login failed")
		return nil, ErrUnavailable
	}

	var auth struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if auth.Data.Token == "" {
		return nil, ErrBadCredentials
	}

	return c.accountMe(ctx, auth.Data.Token)
}

func (c *Client) accountMe(ctx context.Context, token string) (*Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("hemis profile unreachable")
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("hemis profile fetch failed")
		return nil, ErrUnavailable
	}

	var payload struct {
		Data Account `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}

	return &payload.Data, nil
}

// StudentPage fetches one page of the roster using the service token.
func (c *Client) StudentPage(ctx context.Context, page, limit int) (*StudentList, error) {
	url := fmt.Sprintf("%s/data/student-list?page=%d&limit=%d", c.baseURL, page, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Int("page", page).Msg("roster page fetch failed")
		return nil, ErrUnavailable
	}

	var payload struct {
		Data StudentList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode roster page: %w", err)
	}

	return &payload.Data, nil
}

// UniversityProfile fetches the institution record, including the faculty
// list used to seed faculty admin scopes.
func (c *Client) UniversityProfile(ctx context.Context) (*University, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/university-profile", nil)
	if err != nil {
		return nil, fmt.Errorf("build university request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnavailable
	}

	var payload struct {
		Data University `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode university profile: %w", err)
	}

	return &payload.Data, nil
}
