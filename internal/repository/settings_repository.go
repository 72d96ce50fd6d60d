package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SettingsRepository stores the system-wide assistant settings record as a Redis hash.
type SettingsRepository interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, fields map[string]string) error
}

type settingsRepository struct {
	client *redis.Client
	key    string
}

// NewSettingsRepository builds the repository over the hash at key.
func NewSettingsRepository(client *redis.Client, key string) SettingsRepository {
	return &settingsRepository{client: client, key: key}
}

func (r *settingsRepository) Load(ctx context.Context) (map[string]string, error) {
	return r.client.HGetAll(ctx, r.key).Result()
}

func (r *settingsRepository) Save(ctx context.Context, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	return r.client.HSet(ctx, r.key, values...).Err()
}
