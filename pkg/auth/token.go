package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mchmarny/devpoints/pkg/net"
)

const (
	deviceCodeURL = "https://github.com/login/device/code"
	accessCodeURL = "https://github.com/login/oauth/access_token"
	deviceScopes  = "" // public read-only access is enough to list PRs and issues
	grantType     = "urn:ietf:params:oauth:grant-type:device_code"

	// slowDownStep is how much GitHub asks clients to add to the polling
	// interval after a slow_down response.
	slowDownStep = 5 * time.Second
)

var (
	// ErrAuthorizationPending means the user has not entered the code yet.
	ErrAuthorizationPending = errors.New("authorization pending")
	// ErrSlowDown means the client polled too fast and must widen the interval.
	ErrSlowDown = errors.New("slow down")
	// ErrCodeExpired means the device code can no longer be exchanged.
	ErrCodeExpired = errors.New("device code expired")
)

// DeviceCode is the GitHub response to a device code request.
type DeviceCode struct {
	// DeviceCode is the 40 character code used to verify the device.
	DeviceCode string `json:"device_code,omitempty"`
	// UserCode is the 8 character code the user enters in the browser.
	UserCode        string `json:"user_code,omitempty"`
	VerificationURL string `json:"verification_uri,omitempty"`
	ExpiresInSec    int    `json:"expires_in,omitempty"`
	// Interval is the minimum number of seconds between token requests.
	Interval int `json:"interval,omitempty"`
}

// AccessTokenResponse is the GitHub response to a token request. Error is
// set instead of AccessToken while the flow is not complete.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Error       string `json:"error,omitempty"`
	Description string `json:"error_description,omitempty"`
	// Interval is the new minimum polling interval sent with slow_down.
	Interval int `json:"interval,omitempty"`
}

// DeviceFlow runs the GitHub OAuth device authorization flow.
type DeviceFlow struct {
	ClientID      string
	DeviceCodeURL string
	AccessCodeURL string
	Client        *http.Client
	// SlowDownStep is added to the polling interval on slow_down,
	// 5s when zero.
	SlowDownStep time.Duration
}

// NewDeviceFlow returns a flow against the public GitHub endpoints.
func NewDeviceFlow(clientID string) *DeviceFlow {
	return &DeviceFlow{
		ClientID:      clientID,
		DeviceCodeURL: deviceCodeURL,
		AccessCodeURL: accessCodeURL,
		Client:        net.GetHTTPClient(),
	}
}

// GetDeviceCode requests a new device and user code pair.
func (f *DeviceFlow) GetDeviceCode(ctx context.Context) (*DeviceCode, error) {
	if f.ClientID == "" {
		return nil, errors.New("clientID is required")
	}

	q := url.Values{}
	q.Add("client_id", f.ClientID)
	q.Add("scope", deviceScopes)

	var dc DeviceCode
	if err := f.post(ctx, f.DeviceCodeURL, q, &dc); err != nil {
		return nil, fmt.Errorf("getting device code: %w", err)
	}

	return &dc, nil
}

// GetToken exchanges the device code for an access token once.
// It returns ErrAuthorizationPending while the user has not approved the code
// and ErrSlowDown, along with the response, when polling too fast.
func (f *DeviceFlow) GetToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if f.ClientID == "" {
		return nil, errors.New("clientID is required")
	}

	if code == nil {
		return nil, errors.New("device code is nil")
	}

	q := url.Values{}
	q.Add("client_id", f.ClientID)
	q.Add("device_code", code.DeviceCode)
	q.Add("grant_type", grantType)

	var t AccessTokenResponse
	if err := f.post(ctx, f.AccessCodeURL, q, &t); err != nil {
		return nil, fmt.Errorf("getting access token: %w", err)
	}

	switch t.Error {
	case "":
	case "authorization_pending":
		return nil, ErrAuthorizationPending
	case "slow_down":
		return &t, ErrSlowDown
	case "expired_token":
		return nil, ErrCodeExpired
	default:
		return nil, fmt.Errorf("access token error: %s - %s", t.Error, t.Description)
	}

	if t.AccessToken == "" {
		return nil, errors.New("access token is empty")
	}

	return &t, nil
}

// WaitForToken polls GetToken at the code interval until the user approves
// the code, the code expires, or ctx is done.
func (f *DeviceFlow) WaitForToken(ctx context.Context, code *DeviceCode) (*AccessTokenResponse, error) {
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	interval := time.Duration(code.Interval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	if code.ExpiresInSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(code.ExpiresInSec)*time.Second)
		defer cancel()
	}

	for {
		t, err := f.GetToken(ctx, code)
		switch {
		case errors.Is(err, ErrSlowDown):
			interval = f.slowDown(interval, t)
			slog.Debug("device flow slow down", "interval", interval)
		case !errors.Is(err, ErrAuthorizationPending):
			return t, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrCodeExpired
			}
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// slowDown returns the widened polling interval: the server interval when it
// sent a larger one, otherwise the current interval plus the step.
func (f *DeviceFlow) slowDown(interval time.Duration, t *AccessTokenResponse) time.Duration {
	step := f.SlowDownStep
	if step <= 0 {
		step = slowDownStep
	}

	next := interval + step
	if t != nil {
		if s := time.Duration(t.Interval) * time.Second; s > next {
			next = s
		}
	}
	return next
}

func (f *DeviceFlow) post(ctx context.Context, u string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(q.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = net.GetHTTPClient()
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body := ""
		if b, err := io.ReadAll(res.Body); err == nil {
			body = string(b)
		}
		return fmt.Errorf("unexpected response: %s - %s - %s", res.Status, u, body)
	}

	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
