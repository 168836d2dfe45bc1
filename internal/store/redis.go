package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/rcliao/sorma/internal/model"
)

const defaultRedisPrefix = "sorma:"

// RedisBackend stores each collection as a JSON document under its own key.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to addr and verifies the connection.
func NewRedisBackend(addr, prefix string) (*RedisBackend, error) {
	if addr == "" {
		return nil, errors.New("redis backend: address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis backend: ping %s: %w", addr, err)
	}
	return NewRedisBackendFromClient(client, prefix), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(collection string) string {
	return b.prefix + collection
}

func (b *RedisBackend) LoadFacts(ctx context.Context) ([]model.Fact, error) {
	var facts []model.Fact
	if _, err := b.get(ctx, CollectionFacts, &facts); err != nil {
		return nil, err
	}
	return facts, nil
}

func (b *RedisBackend) SaveFacts(ctx context.Context, facts []model.Fact) error {
	if facts == nil {
		facts = []model.Fact{}
	}
	return b.set(ctx, CollectionFacts, facts)
}

func (b *RedisBackend) LoadConversations(ctx context.Context) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	if _, err := b.get(ctx, CollectionConversations, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (b *RedisBackend) SaveConversations(ctx context.Context, turns []model.ConversationTurn) error {
	if turns == nil {
		turns = []model.ConversationTurn{}
	}
	return b.set(ctx, CollectionConversations, turns)
}

func (b *RedisBackend) LoadOwner(ctx context.Context) (*model.OwnerProfile, error) {
	var owner model.OwnerProfile
	found, err := b.get(ctx, CollectionOwner, &owner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOwnerNotFound
	}
	return &owner, nil
}

func (b *RedisBackend) SaveOwner(ctx context.Context, owner *model.OwnerProfile) error {
	return b.set(ctx, CollectionOwner, owner)
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) get(ctx context.Context, collection string, v any) (bool, error) {
	data, err := b.client.Get(ctx, b.key(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, collection, err)
	}
	return true, nil
}

func (b *RedisBackend) set(ctx context.Context, collection string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	if err := b.client.Set(ctx, b.key(collection), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", collection, err)
	}
	return nil
}
