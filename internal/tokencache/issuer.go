package tokencache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OAuthIssuer implements Issuer against an external OAuth2 client-credentials
// token endpoint (spec §6: "HTTP call returning { access_token, id_token,
// token_type = Bearer, expires_in }").
type OAuthIssuer struct {
	url          string
	clientID     string
	clientSecret string
	http         *http.Client
}

// NewOAuthIssuer builds an issuer for the given token endpoint and client credentials.
func NewOAuthIssuer(tokenURL, clientID, clientSecret string, httpClient *http.Client) *OAuthIssuer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OAuthIssuer{url: tokenURL, clientID: clientID, clientSecret: clientSecret, http: httpClient}
}

type oauthWireResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issue implements Issuer: a client-credentials grant POST, form-encoded per
// the OAuth2 client-credentials spec.
func (i *OAuthIssuer) Issue(ctx context.Context) (Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {i.clientID},
		"client_secret": {i.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("token issuer returned status %d", resp.StatusCode)
	}

	var wire oauthWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}

	return Token{
		AccessToken: wire.AccessToken,
		IDToken:     wire.IDToken,
		ExpiresAt:   expiryFor(wire),
	}, nil
}

// expiryFor prefers the access token's own "exp" claim, when it's a parsable
// JWT, over the issuer's expires_in hint — a clock-skewed or slow-to-arrive
// response shouldn't shift the token's real expiry. Falls back to expires_in
// when the access token isn't a JWT (opaque tokens are a valid OAuth2
// outcome) or carries no exp claim.
func expiryFor(wire oauthWireResponse) time.Time {
	if exp, ok := jwtExpiry(wire.AccessToken); ok {
		return exp
	}
	return time.Now().Add(time.Duration(wire.ExpiresIn) * time.Second)
}

func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
