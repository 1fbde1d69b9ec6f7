package app

import (
	iauth "github.com/flagforge/flagforge/internal/auth"
	"github.com/flagforge/flagforge/internal/cache"
	"github.com/flagforge/flagforge/internal/grader"
)

// RedisClientConfig converts the cache section into connection parameters.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  c.Redis.Address,
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Timeout:  c.Redis.Timeout,
	}
}

// JWTServiceConfig converts the auth section into JWT service parameters.
func (a AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:         a.JWT.Secret,
		Issuer:         a.JWT.Issuer,
		AccessTokenTTL: a.JWT.TTL,
	}
}

// OIDCProviderConfig converts the oauth section into provider parameters.
func (a AuthConfig) OIDCProviderConfig() iauth.OIDCConfig {
	return iauth.OIDCConfig{
		Name:         a.OAuth.Provider,
		IssuerURL:    a.OAuth.IssuerURL,
		ClientID:     a.OAuth.ClientID,
		ClientSecret: a.OAuth.ClientSecret,
		RedirectURL:  a.OAuth.RedirectURL,
		Scopes:       a.OAuth.Scopes,
	}
}

// GraderClientConfig converts the grader section into client parameters.
func (g GraderConfig) GraderClientConfig() grader.Config {
	return grader.Config{
		URL:     g.URL,
		Timeout: g.Timeout,
	}
}
