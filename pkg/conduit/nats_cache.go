package conduit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSKVConfig configures the NATS JetStream KV cache backend. It lets
// several client processes share one response cache.
type NATSKVConfig struct {
	// URLs are the NATS server addresses.
	URLs []string

	// Bucket is the KV bucket name. Created if it does not exist.
	Bucket string

	// CredsFile is an optional NATS credentials file.
	CredsFile string

	// TTL is the bucket-level expiry backstop. Entry-level TTLs still
	// apply on read.
	TTL time.Duration

	// Replicas is the KV bucket replica count. Zero means 1.
	Replicas int
}

// NATSKVCache stores cache entries in a NATS JetStream key-value bucket.
type NATSKVCache struct {
	conn   *nats.Conn
	bucket nats.KeyValue
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil || config.Bucket == "" {
		return nil, ErrNATSConfigRequired
	}

	var opts []nats.Option
	if config.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(config.CredsFile))
	}

	conn, err := nats.Connect(strings.Join(config.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	bucket, err := js.KeyValue(config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		replicas := config.Replicas
		if replicas <= 0 {
			replicas = 1
		}

		bucket, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:   config.Bucket,
			TTL:      config.TTL,
			Replicas: replicas,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSKVCache{conn: conn, bucket: bucket}, nil
}

// kvKey maps a fingerprint onto the NATS KV key alphabet. Fingerprints use
// ':' between method and digest, which KV keys do not allow.
func kvKey(key string) string {
	return strings.ReplaceAll(key, ":", "=")
}

// Get returns the entry for key, or an error if absent or expired.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kve, err := c.bucket.Get(kvKey(key))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, ErrCacheKeyNotFound
		}

		return nil, fmt.Errorf("reading KV entry: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kve.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding KV entry: %w", err)
	}

	if entry.Expired() {
		_ = c.bucket.Delete(kvKey(key))

		return nil, ErrCacheEntryStale
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding KV entry: %w", err)
	}

	_, err = c.bucket.Put(kvKey(key), data)
	if err != nil {
		return fmt.Errorf("writing KV entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.bucket.Delete(kvKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting KV entry: %w", err)
	}

	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *NATSKVCache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.bucket.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("listing KV keys: %w", err)
	}

	mapped := kvKey(prefix)

	var lastErr error

	for _, key := range keys {
		if strings.HasPrefix(key, mapped) {
			err := c.bucket.Delete(key)
			if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
				lastErr = err
			}
		}
	}

	if lastErr != nil {
		return fmt.Errorf("deleting KV namespace: %w", lastErr)
	}

	return nil
}

// Clear removes all entries.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.bucket.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("listing KV keys: %w", err)
	}

	for _, key := range keys {
		err := c.bucket.Delete(key)
		if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("clearing KV bucket: %w", err)
		}
	}

	return nil
}

// Has reports whether a live entry exists for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the NATS connection.
func (c *NATSKVCache) Close() error {
	c.conn.Close()

	return nil
}
