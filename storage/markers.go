// Package storage keeps launch markers in NATS KV so every adapter replica
// connected to the same JetStream domain sees the same in-flight set.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultMarkerBucket is the KV bucket holding in-flight launch markers.
const DefaultMarkerBucket = "CORE_VALID_LAUNCHES"

// kvStore is the subset of a KV bucket the markers need.
type kvStore interface {
	Create(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type jetstreamKV struct {
	kv jetstream.KeyValue
}

func (j jetstreamKV) Create(ctx context.Context, key string, value []byte) error {
	_, err := j.kv.Create(ctx, key, value)
	return err
}

func (j jetstreamKV) Delete(ctx context.Context, key string) error {
	return j.kv.Delete(ctx, key)
}

func (j jetstreamKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := j.kv.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// LaunchMarkers is a marker set backed by a NATS KV bucket. The bucket TTL
// expires markers left behind by a replica that died mid-launch.
type LaunchMarkers struct {
	bucket string
	ttl    time.Duration
	holder string

	mu    sync.RWMutex
	store kvStore
}

// NewLaunchMarkers creates a marker set for bucket. It must be opened with
// Open before use.
func NewLaunchMarkers(bucket string, ttl time.Duration, holder string) *LaunchMarkers {
	if bucket == "" {
		bucket = DefaultMarkerBucket
	}
	return &LaunchMarkers{bucket: bucket, ttl: ttl, holder: holder}
}

// Open binds the set to its bucket, creating the bucket if needed.
func (m *LaunchMarkers) Open(ctx context.Context, js jetstream.JetStream) error {
	kv, err := getOrCreateBucket(ctx, js, m.bucket, m.ttl)
	if err != nil {
		return fmt.Errorf("open marker bucket %s: %w", m.bucket, err)
	}

	m.mu.Lock()
	m.store = jetstreamKV{kv: kv}
	m.mu.Unlock()
	return nil
}

// Bucket returns the bucket name.
func (m *LaunchMarkers) Bucket() string {
	return m.bucket
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "CORE valid in-flight launch markers",
		History:     1,
		TTL:         ttl,
	})
}

func (m *LaunchMarkers) kv() (kvStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.store == nil {
		return nil, ErrNotOpen
	}
	return m.store, nil
}

// TryAdd creates the marker if absent and reports whether it did.
func (m *LaunchMarkers) TryAdd(ctx context.Context, key string) (bool, error) {
	store, err := m.kv()
	if err != nil {
		return false, err
	}
	k, err := encodeKey(key)
	if err != nil {
		return false, err
	}

	if err := store.Create(ctx, k, []byte(m.holder)); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create marker: %w", err)
	}
	return true, nil
}

// Remove deletes the marker. Removing an absent marker is a no-op.
func (m *LaunchMarkers) Remove(ctx context.Context, key string) error {
	store, err := m.kv()
	if err != nil {
		return err
	}
	k, err := encodeKey(key)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, k); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete marker: %w", err)
	}
	return nil
}

// Contains reports whether the marker is held.
func (m *LaunchMarkers) Contains(ctx context.Context, key string) (bool, error) {
	store, err := m.kv()
	if err != nil {
		return false, err
	}
	k, err := encodeKey(key)
	if err != nil {
		return false, err
	}

	held, err := store.Exists(ctx, k)
	if err != nil {
		return false, fmt.Errorf("get marker: %w", err)
	}
	return held, nil
}

// encodeKey maps a raw timestamp onto the KV key alphabet. Timestamps carry
// ':' and '+', which KV keys do not allow.
func encodeKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return base64.RawURLEncoding.EncodeToString([]byte(key)), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}
