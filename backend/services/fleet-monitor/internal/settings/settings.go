package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// ErrNotFound is returned when nothing has been saved yet.
var ErrNotFound = errors.New("settings not found")

const defaultKey = "fleet:settings"

// Repository persists user preferences.
type Repository interface {
	Load(ctx context.Context) (models.Preferences, error)
	Save(ctx context.Context, prefs models.Preferences) error
}

// RedisRepository keeps preferences as one JSON value.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository returns redis-backed repository. An empty key uses "fleet:settings".
func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	if key == "" {
		key = defaultKey
	}
	return &RedisRepository{client: client, key: key}
}

// Load returns saved preferences.
func (r *RedisRepository) Load(ctx context.Context) (models.Preferences, error) {
	result, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return models.Preferences{}, ErrNotFound
	}
	if err != nil {
		return models.Preferences{}, err
	}
	var prefs models.Preferences
	if err := json.Unmarshal([]byte(result), &prefs); err != nil {
		return models.Preferences{}, err
	}
	return prefs, nil
}

// Save overwrites saved preferences. They never expire.
func (r *RedisRepository) Save(ctx context.Context, prefs models.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

// NoopRepository is used when no Redis is configured.
type NoopRepository struct{}

// Load always reports ErrNotFound.
func (NoopRepository) Load(context.Context) (models.Preferences, error) {
	return models.Preferences{}, ErrNotFound
}

// Save discards prefs.
func (NoopRepository) Save(context.Context, models.Preferences) error {
	return nil
}
