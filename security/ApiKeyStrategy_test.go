package security

import (
	goctx "context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Netcracker/qubership-data-exporter/context"
	"github.com/shaj13/libcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testApiKey = "0123456789abcdef-test"

func TestApiKeyStrategy(t *testing.T) {
	cache := libcache.LRU.New(10)
	strategy := NewApiKeyStrategy(testApiKey, cache)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/exports", nil)
	r.Header.Set(ApiKeyHeader, testApiKey)
	info, err := strategy.Authenticate(goctx.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, apiKeyUserId, info.GetID())
	assert.Equal(t, context.AuthMethodApiKey, info.GetExtensions().Get(context.AuthMethodExt))
	assert.Equal(t, 1, cache.Len())
	_, cachedRaw := cache.Peek(testApiKey)
	assert.False(t, cachedRaw)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/exports", nil)
	r.Header.Set("Authorization", "Bearer "+testApiKey)
	_, err = strategy.Authenticate(goctx.Background(), r)
	require.NoError(t, err)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/exports", nil)
	r.Header.Set(ApiKeyHeader, "wrong")
	_, err = strategy.Authenticate(goctx.Background(), r)
	assert.Error(t, err)

	_, err = strategy.Authenticate(goctx.Background(), httptest.NewRequest(http.MethodGet, "/api/v1/exports", nil))
	assert.Error(t, err)
}

func TestSecure(t *testing.T) {
	require.NoError(t, SetupGoGuardian(testApiKey))
	var userId string
	handler := Secure(func(w http.ResponseWriter, r *http.Request) {
		userId = context.Create(r).GetUserId()
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/exports", nil)
	handler(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, userId)

	w = httptest.NewRecorder()
	r.Header.Set(ApiKeyHeader, testApiKey)
	handler(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, apiKeyUserId, userId)
}

func TestNoSecure_RecoversFromPanic(t *testing.T) {
	handler := NoSecure(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestSetupGoGuardian_RequiresKey(t *testing.T) {
	assert.Error(t, SetupGoGuardian(""))
}
