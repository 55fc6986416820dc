package push

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServiceAccountJSON(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	raw, err := json.Marshal(map[string]string{
		"client_email": "pusher@demo.iam.gserviceaccount.com",
		"private_key":  string(pemKey),
	})
	require.NoError(t, err)
	return string(raw)
}

func TestServiceAccountTokenSourceRejectsBadInput(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	_, err := NewServiceAccountTokenSource("not json", rdb, 55*time.Minute)
	assert.Error(t, err)

	_, err = NewServiceAccountTokenSource(`{"client_email":"x@y.z"}`, rdb, 55*time.Minute)
	assert.Error(t, err)

	_, err = NewServiceAccountTokenSource(`{"client_email":"x@y.z","private_key":"garbage"}`, rdb, 55*time.Minute)
	assert.Error(t, err)
}

func TestServiceAccountTokenSourceExchangesAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, jwtBearerGrant, r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("assertion"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.test-token",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	source, err := NewServiceAccountTokenSource(testServiceAccountJSON(t), rdb, 55*time.Minute)
	require.NoError(t, err)
	source.tokenURL = srv.URL

	ctx := context.Background()
	token, err := source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", token)
	assert.Equal(t, 1, exchanges)

	// second call is served from the cache
	token, err = source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", token)
	assert.Equal(t, 1, exchanges)

	// cached with a safety margin under the provider expiry
	ttl := mr.TTL(tokenCacheKey)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 55*time.Minute)
}

func TestServiceAccountTokenSourceExchangeFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	}))
	defer srv.Close()

	source, err := NewServiceAccountTokenSource(testServiceAccountJSON(t), rdb, 55*time.Minute)
	require.NoError(t, err)
	source.tokenURL = srv.URL

	_, err = source.Token(context.Background())
	require.Error(t, err)
	assert.False(t, mr.Exists(tokenCacheKey))
}
