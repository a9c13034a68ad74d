package redis

import "strings"

// DefaultNamespace prefixes every key the storefront writes.
const DefaultNamespace = "uh"

// Keyspace builds colon-separated keys under a namespace. Blank segments are
// dropped so "uh:cart:" never appears.
type Keyspace string

func (k Keyspace) join(segments ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(segment)
	}
	return b.String()
}

func (k Keyspace) Idempotency(scope, id string) string { return k.join("idempotency", scope, id) }
func (k Keyspace) RateLimit(scope string) string       { return k.join("rate_limit", scope) }
func (k Keyspace) Cart(session string) string          { return k.join("cart", session) }
func (k Keyspace) Lock(name string) string             { return k.join("lock", name) }
func (k Keyspace) Channel(topic string) string         { return k.join("changes", topic) }

// Topic reverses Channel. Channels outside the namespace are returned as is.
func (k Keyspace) Topic(channel string) string {
	return strings.TrimPrefix(channel, k.join("changes")+":")
}
