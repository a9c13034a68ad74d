package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

// Nil is returned by Get when the key does not exist.
var Nil = goredis.Nil

// delIfEquals removes KEYS[1] only while it still holds ARGV[1].
var delIfEquals = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errNotConnected = pkgerrors.New(pkgerrors.CodeDependency, "redis client not connected")

// commander is the slice of go-redis the storefront relies on.
type commander interface {
	Ping(ctx context.Context) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *goredis.BoolCmd
	Incr(ctx context.Context, key string) *goredis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// IdempotencyStore is what the idempotency middleware needs from Redis.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Client holds the pooled connection plus the key namespace.
type Client struct {
	cmd  commander
	conn *goredis.Client
	keys Keyspace
}

// New dials Redis from cfg and fails fast when the server does not answer.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := goredis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable")
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"redis_db": opts.DB, "pool_size": opts.PoolSize}), "redis.connected")
	return &Client{cmd: conn, conn: conn, keys: DefaultNamespace}, nil
}

// options layers the explicit settings over whatever the URL already carries.
func options(cfg config.RedisConfig) (*goredis.Options, error) {
	if cfg.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis url is required")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid redis url")
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	for _, override := range []struct {
		dst *time.Duration
		src time.Duration
	}{
		{&opts.DialTimeout, cfg.DialTimeout},
		{&opts.ReadTimeout, cfg.ReadTimeout},
		{&opts.WriteTimeout, cfg.WriteTimeout},
	} {
		if override.src > 0 {
			*override.dst = override.src
		}
	}
	return opts, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Ping(ctx).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotConnected
	}
	return c.cmd.Get(ctx, key).Result()
}

// Set stores value under key. A zero ttl keeps the key until deleted.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// SetNX reports whether the key was created by this call.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// DelIfEquals deletes key when its value is still value and reports whether
// it did. Check and delete run as one script so a lock that expired and was
// taken over is never removed by its previous owner.
func (c *Client) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	if c.conn == nil {
		return false, errNotConnected
	}
	n, err := delIfEquals.Run(ctx, c.conn, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrWithTTL bumps a counter and arms its expiry when the counter is new,
// which gives fixed windows that start at the first hit.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.cmd == nil {
		return 0, errNotConnected
	}
	count, err := c.cmd.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && ttl > 0 {
		if err := c.cmd.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Publish sends payload on the channel for topic.
func (c *Client) Publish(ctx context.Context, topic string, payload any) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Publish(ctx, c.keys.Channel(topic), payload).Err()
}

// Subscribe waits for the subscription to be confirmed so no publish made
// after it returns is missed. The caller closes the returned PubSub.
func (c *Client) Subscribe(ctx context.Context, topics ...string) (*goredis.PubSub, error) {
	if c.conn == nil {
		return nil, errNotConnected
	}
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = c.keys.Channel(topic)
	}
	sub := c.conn.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis subscribe")
	}
	return sub, nil
}

func (c *Client) IdempotencyKey(scope, id string) string { return c.keys.Idempotency(scope, id) }
func (c *Client) RateLimitKey(scope string) string       { return c.keys.RateLimit(scope) }
func (c *Client) CartKey(session string) string          { return c.keys.Cart(session) }
func (c *Client) LockKey(name string) string             { return c.keys.Lock(name) }
func (c *Client) TopicFromChannel(channel string) string { return c.keys.Topic(channel) }

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
