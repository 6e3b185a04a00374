package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlow(t *testing.T, tokenHandler http.HandlerFunc) *DeviceFlow {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dc_test","user_code":"ABCD-1234","verification_uri":"https://github.com/login/device","expires_in":900,"interval":0}`))
	})
	if tokenHandler != nil {
		mux.HandleFunc("/login/oauth/access_token", tokenHandler)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &DeviceFlow{
		ClientID:      "test-client",
		DeviceCodeURL: srv.URL + "/login/device/code",
		AccessCodeURL: srv.URL + "/login/oauth/access_token",
		Client:        srv.Client(),
	}
}

func writeToken(w http.ResponseWriter, v AccessTokenResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetDeviceCode(t *testing.T) {
	f := newTestFlow(t, nil)
	dc, err := f.GetDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dc_test", dc.DeviceCode)
	assert.Equal(t, "ABCD-1234", dc.UserCode)
	assert.Equal(t, 900, dc.ExpiresInSec)
}

func TestGetDeviceCode_EmptyClientID(t *testing.T) {
	_, err := NewDeviceFlow("").GetDeviceCode(context.Background())
	assert.Error(t, err)
}

func TestGetDeviceCode_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := &DeviceFlow{ClientID: "c", DeviceCodeURL: srv.URL, Client: srv.Client()}
	_, err := f.GetDeviceCode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGetToken(t *testing.T) {
	f := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "dc_test", r.PostForm.Get("device_code"))
		assert.Equal(t, grantType, r.PostForm.Get("grant_type"))
		writeToken(w, AccessTokenResponse{AccessToken: "gho_test123", TokenType: "bearer"})
	})

	tok, err := f.GetToken(context.Background(), &DeviceCode{DeviceCode: "dc_test"})
	require.NoError(t, err)
	assert.Equal(t, "gho_test123", tok.AccessToken)
}

func TestGetToken_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp AccessTokenResponse
		want error
	}{
		{"pending", AccessTokenResponse{Error: "authorization_pending"}, ErrAuthorizationPending},
		{"slow down", AccessTokenResponse{Error: "slow_down"}, ErrSlowDown},
		{"expired", AccessTokenResponse{Error: "expired_token"}, ErrCodeExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFlow(t, func(w http.ResponseWriter, _ *http.Request) {
				writeToken(w, tt.resp)
			})
			_, err := f.GetToken(context.Background(), &DeviceCode{DeviceCode: "dc_test"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetToken_AccessDenied(t *testing.T) {
	f := newTestFlow(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, AccessTokenResponse{Error: "access_denied", Description: "user said no"})
	})
	_, err := f.GetToken(context.Background(), &DeviceCode{DeviceCode: "dc_test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user said no")
}

func TestGetToken_InvalidArgs(t *testing.T) {
	_, err := NewDeviceFlow("").GetToken(context.Background(), &DeviceCode{})
	assert.Error(t, err)

	_, err = NewDeviceFlow("test-client").GetToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestWaitForToken_PollsUntilApproved(t *testing.T) {
	var calls atomic.Int32
	f := newTestFlow(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeToken(w, AccessTokenResponse{Error: "authorization_pending"})
			return
		}
		writeToken(w, AccessTokenResponse{AccessToken: "gho_done"})
	})

	dc, err := f.GetDeviceCode(context.Background())
	require.NoError(t, err)
	dc.Interval = 0

	tok, err := f.WaitForToken(context.Background(), dc)
	require.NoError(t, err)
	assert.Equal(t, "gho_done", tok.AccessToken)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForToken_Canceled(t *testing.T) {
	f := newTestFlow(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, AccessTokenResponse{Error: "authorization_pending"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.WaitForToken(ctx, &DeviceCode{DeviceCode: "dc_test", Interval: 1})
	assert.Error(t, err)
}

func TestWaitForToken_SlowDown(t *testing.T) {
	var calls atomic.Int32
	f := newTestFlow(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeToken(w, AccessTokenResponse{Error: "slow_down"})
			return
		}
		writeToken(w, AccessTokenResponse{AccessToken: "gho_slow"})
	})
	f.SlowDownStep = 10 * time.Millisecond

	start := time.Now()
	tok, err := f.WaitForToken(context.Background(), &DeviceCode{DeviceCode: "dc_test"})
	require.NoError(t, err)
	assert.Equal(t, "gho_slow", tok.AccessToken)
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second+10*time.Millisecond)
}

func TestSlowDown(t *testing.T) {
	f := &DeviceFlow{}
	assert.Equal(t, 10*time.Second, f.slowDown(5*time.Second, nil))
	assert.Equal(t, 10*time.Second, f.slowDown(5*time.Second, &AccessTokenResponse{Interval: 7}))
	assert.Equal(t, 15*time.Second, f.slowDown(5*time.Second, &AccessTokenResponse{Interval: 15}))

	f.SlowDownStep = time.Second
	assert.Equal(t, 3*time.Second, f.slowDown(2*time.Second, nil))
}
