package security

import (
	goctx "context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/Netcracker/qubership-data-exporter/context"
	"github.com/Netcracker/qubership-data-exporter/crypto"
	"github.com/shaj13/go-guardian/v2/auth"
	"github.com/shaj13/go-guardian/v2/auth/strategies/token"
	"github.com/shaj13/libcache"
)

const ApiKeyHeader = "api-key"

const (
	apiKeyUserId   = "export-api-client"
	apiKeyCacheTTL = 10 * time.Minute
)

// NewApiKeyStrategy accepts the configured key from the api-key header or as a bearer token.
func NewApiKeyStrategy(apiKey string, cache libcache.Cache) auth.Strategy {
	return &apiKeyStrategyImpl{
		apiKey:       []byte(apiKey),
		cache:        cache,
		bearerParser: token.AuthorizationParser("Bearer"),
	}
}

type apiKeyStrategyImpl struct {
	apiKey       []byte
	cache        libcache.Cache
	bearerParser token.Parser
}

func (a apiKeyStrategyImpl) Authenticate(ctx goctx.Context, r *http.Request) (auth.Info, error) {
	apiKey := r.Header.Get(ApiKeyHeader)
	if apiKey == "" {
		bearer, err := a.bearerParser.Token(r)
		if err != nil || bearer == "" {
			return nil, fmt.Errorf("authentication failed: header '%v' is empty", ApiKeyHeader)
		}
		apiKey = bearer
	}
	// raw keys are never kept in the cache
	cacheKey := crypto.CreateSHA256Hash([]byte(apiKey))
	if v, ok := a.cache.Load(cacheKey); ok {
		info, ok := v.(auth.Info)
		if !ok {
			return nil, auth.NewTypeError("authentication failed:", (*auth.Info)(nil), v)
		}
		return info, nil
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), a.apiKey) != 1 {
		return nil, fmt.Errorf("authentication failed: '%v' is invalid", ApiKeyHeader)
	}
	extensions := auth.Extensions{}
	extensions.Set(context.AuthMethodExt, context.AuthMethodApiKey)
	info := auth.NewDefaultUser(apiKeyUserId, apiKeyUserId, []string{}, extensions)
	a.cache.StoreWithTTL(cacheKey, info, apiKeyCacheTTL)
	return info, nil
}
