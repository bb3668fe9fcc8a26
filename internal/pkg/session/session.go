package session

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/cache"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/env"
)

// NewSessionStore builds the session store from the environment. Sessions
// live in Redis unless SESSION_STORAGE=memory.
func NewSessionStore() *session.Store {
	cfg := session.Config{
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     time.Hour * 1,
		KeyLookup:      "cookie:session_id",
	}
	if strings.EqualFold(env.GetEnv("SESSION_STORAGE", "redis"), "redis") {
		cfg.Storage = newRedisStorage()
	}

	return session.New(cfg)
}

func newRedisStorage() *redis.Storage {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Sessions use database 1, the cache uses DB 0
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
