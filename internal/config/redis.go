package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server used for state storage and rate
// limiting. Fields are read from REDIS_* variables. Addr takes precedence
// over Host and Port.
type RedisConfig struct {
	Host     string
	Port     string
	Addr     string
	Password string
	DB       int  `default:"0"`
	TLS      bool `default:"false"`
}

// Address resolves the host:port to dial.
func (c RedisConfig) Address() string {
	switch {
	case c.Addr != "":
		return c.Addr
	case c.Host != "" && c.Port != "":
		return c.Host + ":" + c.Port
	}
	return "localhost:6379"
}

// NewRedisClient connects to Redis and pings it with a short timeout. The
// client is closed and an error returned when the ping fails.
func NewRedisClient(c RedisConfig) (*redis.Client, error) {
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Address(),
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", c.Address(), err)
	}
	return client, nil
}
