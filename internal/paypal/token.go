package paypal

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// tokenSource hands out provider access tokens.
type tokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// freshTokens requests a new token on every call (client-credentials
// grant, credentials sent as HTTP Basic auth).
type freshTokens struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
}

func newFreshTokens(baseURL, clientID, clientSecret string, httpClient *http.Client) *freshTokens {
	return &freshTokens{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     baseURL + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
	}
}

func (f *freshTokens) Token(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	return f.cfg.Token(ctx)
}

// cachedTokens reuses a token until it is about to expire. Concurrent
// callers that find it stale share a single refresh request.
type cachedTokens struct {
	src   tokenSource
	group singleflight.Group

	mu  sync.Mutex
	tok *oauth2.Token
}

func newCachedTokens(src tokenSource) *cachedTokens {
	return &cachedTokens{src: src}
}

func (c *cachedTokens) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	tok := c.tok
	c.mu.Unlock()
	if tok.Valid() {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		tok, err := c.src.Token(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tok = tok
		c.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}
