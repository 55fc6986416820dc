package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	fcmScope       = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	tokenCacheKey = "push:fcm:access_token"

	// subtracted from the provider-reported expiry so a cached token is
	// never handed out moments before Google rejects it
	tokenExpiryBuffer = 300 * time.Second
)

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ServiceAccountTokenSource exchanges a signed service-account assertion
// for an FCM access token and caches it in Redis for roughly 55 minutes,
// so concurrent workers and restarts reuse one token instead of hitting
// the OAuth endpoint per message.
type ServiceAccountTokenSource struct {
	account  serviceAccount
	rdb      *redis.Client
	http     *http.Client
	tokenURL string
	maxTTL   time.Duration
}

func NewServiceAccountTokenSource(serviceAccountJSON string, rdb *redis.Client, maxTTL time.Duration) (*ServiceAccountTokenSource, error) {
	var account serviceAccount
	if err := json.Unmarshal([]byte(serviceAccountJSON), &account); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("service account JSON missing client_email or private_key")
	}
	// Fail on malformed keys at construction, not on the first send
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey)); err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}
	return &ServiceAccountTokenSource{
		account:  account,
		rdb:      rdb,
		http:     &http.Client{Timeout: 10 * time.Second},
		tokenURL: googleTokenURL,
		maxTTL:   maxTTL,
	}, nil
}

// Token returns a valid access token, from cache when possible
func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	cached, err := s.rdb.Get(ctx, tokenCacheKey).Result()
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && err != redis.Nil {
		// cache unavailable, fetch a fresh token anyway
		return s.fetch(ctx, false)
	}
	return s.fetch(ctx, true)
}

func (s *ServiceAccountTokenSource) fetch(ctx context.Context, cache bool) (string, error) {
	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned empty access token")
	}

	if cache {
		ttl := time.Duration(payload.ExpiresIn)*time.Second - tokenExpiryBuffer
		if ttl > s.maxTTL {
			ttl = s.maxTTL
		}
		if ttl > 0 {
			s.rdb.Set(ctx, tokenCacheKey, payload.AccessToken, ttl)
		}
	}
	return payload.AccessToken, nil
}

func (s *ServiceAccountTokenSource) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.account.ClientEmail,
		"scope": fcmScope,
		"aud":   googleTokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign service account assertion: %w", err)
	}
	return signed, nil
}
