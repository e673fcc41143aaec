package challengeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/httpclient"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/tokencache"
)

const tokenCacheKey = "m2m"

// TokenConfig carries the Auth0 client-credentials grant parameters.
type TokenConfig struct {
	URL          string
	Audience     string
	ClientID     string
	ClientSecret string
	// CacheTime is how long a minted token is trusted before a fresh
	// mint is forced, independent of the token's own claimed lifetime.
	CacheTime time.Duration
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// TokenSource mints and caches the opaque M2M bearer token used to
// authenticate challenge/submission lookups. The core never refreshes
// or introspects the token beyond this TTL cache.
type TokenSource struct {
	cfg    TokenConfig
	client *httpclient.Client
	cache  *tokencache.Cache[string]
	logger ectologger.Logger
}

// NewTokenSource creates a TokenSource.
func NewTokenSource(cfg TokenConfig, client *httpclient.Client, logger ectologger.Logger) *TokenSource {
	return &TokenSource{cfg: cfg, client: client, cache: tokencache.New[string](), logger: logger}
}

// Token returns a bearer token, minting a fresh one on cache miss.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := t.cache.Get(tokenCacheKey); ok {
		return token, nil
	}

	reqBody := tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     t.cfg.ClientID,
		ClientSecret: t.cfg.ClientSecret,
		Audience:     t.cfg.Audience,
	}

	resp, err := t.client.PostJSON(ctx, t.cfg.URL, nil, reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to mint M2M token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}

	t.cache.Set(tokenCacheKey, parsed.AccessToken, t.cfg.CacheTime)
	t.logger.WithContext(ctx).Debugf("Minted new M2M token, caching for %s", t.cfg.CacheTime)

	return parsed.AccessToken, nil
}
