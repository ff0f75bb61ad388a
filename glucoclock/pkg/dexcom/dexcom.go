// Package dexcom is a client for the Dexcom Share API.
package dexcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/clock"

	"go.uber.org/zap"
)

const (
	appID            = "d89443d2-327c-4a6f-89e5-496bbb0317db"
	loginEndpoint    = "General/LoginPublisherAccountByName"
	readingsEndpoint = "Publisher/ReadPublisherLatestGlucoseValues"

	// One day's worth.
	MinuteLimit = 1440
	CountLimit  = 288

	// Share returns this ID for a rejected login.
	nullSessionID = "00000000-0000-0000-0000-000000000000"

	mgdlPerMmol = 18
)

type Client struct {
	client      *http.Client
	clock       clock.Clock
	logger      *zap.Logger
	baseURL     string
	accountName string
	password    string

	mu        sync.Mutex
	sessionID string
}

type LoginRequest struct {
	AccountName   string `json:"accountName"`
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
}

type Reading struct {
	WT          string  `json:"WT"`
	SystemTime  string  `json:"ST"`
	DisplayTime string  `json:"DT"`
	Value       float64 `json:"Value"`
	Trend       string  `json:"Trend"`
}

type TransformedReading struct {
	Time  time.Time
	Mmol  float64
	Trend defs.Trend
}

func New(cfg defs.DexcomConfig, c clock.Clock, logger *zap.Logger) (*Client, error) {
	baseURL, ok := defs.ShareRegions[cfg.Region]
	if !ok {
		return nil, fmt.Errorf("unknown share region %q", cfg.Region)
	}

	return &Client{
		client:      &http.Client{},
		clock:       c,
		logger:      logger,
		baseURL:     baseURL,
		accountName: cfg.Account,
		password:    cfg.Password,
	}, nil
}

// FetchReading returns the most recent reading, or ErrNoData when the
// account has none from the last ten minutes.
func (c *Client) FetchReading(ctx context.Context) (defs.Reading, error) {
	trs, err := c.Readings(ctx, 10, 1)
	if err != nil {
		return defs.Reading{}, err
	}
	if len(trs) == 0 {
		return defs.Reading{}, defs.ErrNoData
	}

	tr := trs[0]
	return defs.NewReading(tr.Mmol, tr.Trend, tr.Time, c.clock.Now()), nil
}

// Readings fetches readings from Dexcom's Share API, and applies a transformation.
// Automatically creates a new session when it expires.
func (c *Client) Readings(ctx context.Context, minutes, maxCount int) ([]*TransformedReading, error) {
	if minutes > MinuteLimit || maxCount > CountLimit {
		return nil, fmt.Errorf("window too large: minutes %d, maxCount %d", minutes, maxCount)
	}

	if c.session() != "" {
		trs, err := c.readings(ctx, minutes, maxCount)
		if err == nil || ctx.Err() != nil {
			return trs, err
		}
		c.logger.Debug("session rejected, logging in again", zap.Error(err))
	}

	if _, err := c.CreateSession(ctx); err != nil {
		return nil, err
	}
	return c.readings(ctx, minutes, maxCount)
}

func (c *Client) CreateSession(ctx context.Context) (string, error) {
	lreq := &LoginRequest{
		AccountName:   c.accountName,
		Password:      c.password,
		ApplicationID: appID,
	}

	b, err := json.Marshal(lreq)
	if err != nil {
		return "", err
	}

	c.logger.Debug("making login request for sessionID",
		zap.String("account", c.accountName),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+loginEndpoint, bytes.NewBuffer(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: login returned %s", defs.ErrAuth, shareError(resp.Status, body))
	}

	sid := strings.Trim(string(body), "\"")
	if sid == "" || sid == nullSessionID {
		return "", fmt.Errorf("%w: no session for account %q", defs.ErrAuth, c.accountName)
	}

	c.mu.Lock()
	c.sessionID = sid
	c.mu.Unlock()

	c.logger.Debug("successfully obtained sessionID")

	return sid, nil
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) readings(ctx context.Context, minutes, maxCount int) ([]*TransformedReading, error) {
	params := url.Values{
		"sessionId": {c.session()},
		"minutes":   {strconv.Itoa(minutes)},
		"maxCount":  {strconv.Itoa(maxCount)},
	}

	c.logger.Debug("making fetch request",
		zap.Int("minutes", minutes),
		zap.Int("maximum count", maxCount),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+readingsEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: readings returned %s", defs.ErrAuth, shareError(resp.Status, body))
	}

	var readings []*Reading

	err = json.NewDecoder(resp.Body).Decode(&readings)
	if err != nil {
		c.logger.Debug("failed to decode readings response")
		return nil, fmt.Errorf("unable to decode readings: %w", err)
	}

	c.logger.Debug("received readings from share API",
		zap.Int("count", len(readings)),
	)

	trs := make([]*TransformedReading, len(readings))
	for i, r := range readings {
		tr, err := transform(r)
		if err != nil {
			return nil, err
		}
		trs[i] = tr
	}

	return trs, nil
}

// shareError extracts the Code field Share puts in error bodies.
func shareError(status string, body []byte) string {
	var e struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return status
	}
	return status + " (" + e.Code + ")"
}

// transform converts a Share record. WT looks like "Date(1651987807000)".
func transform(r *Reading) (*TransformedReading, error) {
	if !strings.HasPrefix(r.WT, "Date(") {
		return nil, errors.New("malformed reading time " + strconv.Quote(r.WT))
	}
	parsedTime := strings.Trim(r.WT[4:], "()")
	unix, err := strconv.ParseInt(parsedTime, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed reading time %q: %w", r.WT, err)
	}

	return &TransformedReading{
		Time:  time.Unix(unix/1000, 0),
		Mmol:  r.Value / mgdlPerMmol,
		Trend: defs.ParseTrend(r.Trend),
	}, nil
}
