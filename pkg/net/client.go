package net

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
)

var (
	reqTransport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		ResponseHeaderTimeout: timeoutInSeconds * time.Second,
	}
)

// GetHTTPClient returns a plain client with bounded timeouts.
func GetHTTPClient() *http.Client {
	return &http.Client{
		Transport: reqTransport,
		Timeout:   timeoutInSeconds * time.Second,
	}
}

// GetOAuthClient returns a client that authorizes every request with token.
func GetOAuthClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, GetHTTPClient())
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "token",
			AccessToken: token,
		},
	)
	return oauth2.NewClient(ctx, ts)
}
