package guac

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultNATSBucketPrefix prefixes the per-resource-type bucket names.
const DefaultNATSBucketPrefix = "guacrest"

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string `mapstructure:"url" yaml:"url"`
	// BucketPrefix is joined with the resource type to name the bucket.
	BucketPrefix string `mapstructure:"bucket_prefix" yaml:"bucket_prefix"`
	// TTL of the bucket. Zero keeps entries until invalidated.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// Conn reuses an existing connection owned by the caller.
	Conn *nats.Conn `mapstructure:"-" yaml:"-"`
}

// NATSKVCache stores entries in one JetStream KV bucket per resource type, so
// several processes can share a cache and its invalidations.
type NATSKVCache struct {
	kv       nats.KeyValue
	conn     *nats.Conn
	ownsConn bool
}

// NewNATSKVCache connects (or reuses config.Conn) and opens the bucket for
// namespace, creating it when missing.
func NewNATSKVCache(config *NATSKVConfig, namespace string) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	conn := config.Conn
	ownsConn := false

	if conn == nil {
		if config.URL == "" {
			return nil, ErrNATSConnectionNeeded
		}

		var err error

		conn, err = nats.Connect(config.URL, nats.Name("guacrest-cache"))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		ownsConn = true
	}

	jetStream, err := conn.JetStream()
	if err != nil {
		closeOwned(conn, ownsConn)

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	bucket := natsBucketName(config.BucketPrefix, namespace)

	kv, err := jetStream.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = jetStream.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "guacrest response cache for " + namespace,
			TTL:         config.TTL,
			History:     1,
		})
	}

	if err != nil {
		closeOwned(conn, ownsConn)

		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	return &NATSKVCache{kv: kv, conn: conn, ownsConn: ownsConn}, nil
}

func closeOwned(conn *nats.Conn, owned bool) {
	if owned {
		conn.Close()
	}
}

func natsBucketName(prefix, namespace string) string {
	if prefix == "" {
		prefix = DefaultNATSBucketPrefix
	}

	return prefix + "_" + namespace
}

// natsKey maps a cache key onto the restricted KV key alphabet.
func natsKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Get retrieves an entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.kv.Get(natsKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrCacheKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kvEntry.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired() {
		return nil, ErrCacheEntryExpired
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.kv.Put(natsKey(key), data)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Purge(natsKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting cache entry: %w", err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("listing cache keys: %w", err)
	}

	for _, key := range keys {
		err = c.kv.Purge(key)
		if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("purging cache key: %w", err)
		}
	}

	return nil
}

// Has reports whether a live entry exists for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close releases the connection when this cache opened it.
func (c *NATSKVCache) Close() {
	closeOwned(c.conn, c.ownsConn)
}
