package cache

import (
	"context"
	"time"
)

// Cache defines the cache operations the server relies on.
type Cache interface {
	BasicOps
	SetOps

	// Ping verifies the cache connection is alive
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// BasicOps defines basic key-value operations
type BasicOps interface {
	// Get retrieves the value for the given key; a missing key yields ""
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL
	// If ttl is 0, the key will not expire
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX sets the value only if the key does not exist (atomic operation)
	// Returns true if the key was set, false if it already existed
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Expire sets a timeout on a key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining time to live of a key
	// Returns -1 if the key exists but has no expiration
	// Returns -2 if the key does not exist
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Incr increments the integer value of a key by 1
	Incr(ctx context.Context, key string) (int64, error)
}

// SetOps defines set operations
type SetOps interface {
	// SAdd adds members to the set stored at key
	SAdd(ctx context.Context, key string, members ...interface{}) error

	// SRem removes members from the set
	SRem(ctx context.Context, key string, members ...interface{}) error

	// SMembers returns all members of the set
	SMembers(ctx context.Context, key string) ([]string, error)

	// SIsMember reports whether member belongs to the set
	SIsMember(ctx context.Context, key string, member interface{}) (bool, error)
}
