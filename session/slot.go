package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"procurement/domain"

	"github.com/redis/go-redis/v9"
)

// SlotKey names the single durable session record.
const SlotKey = "user"

const DefaultRedisKey = "procurement:session:" + SlotKey

// Slot persists the one identity signed in on this instance. Load returns nil when
// the slot is empty. Saved identities never carry their secret.
type Slot interface {
	Load(ctx context.Context) (*domain.Identity, error)
	Save(ctx context.Context, identity domain.Identity) error
	Clear(ctx context.Context) error
}

// FileSlot keeps the session as <Dir>/user.json.
type FileSlot struct {
	Dir string
}

func (s *FileSlot) path() string {
	return filepath.Join(s.Dir, SlotKey+".json")
}

func (s *FileSlot) Load(ctx context.Context) (*domain.Identity, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (s *FileSlot) Save(ctx context.Context, identity domain.Identity) error {
	data, err := json.Marshal(identity.Stripped())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

func (s *FileSlot) Clear(ctx context.Context) error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type RedisSlot struct {
	Client redis.UniversalClient
	Key    string
}

func (s *RedisSlot) key() string {
	if s.Key == "" {
		return DefaultRedisKey
	}
	return s.Key
}

func (s *RedisSlot) Load(ctx context.Context) (*domain.Identity, error) {
	data, err := s.Client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (s *RedisSlot) Save(ctx context.Context, identity domain.Identity) error {
	data, err := json.Marshal(identity.Stripped())
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(), data, 0).Err()
}

func (s *RedisSlot) Clear(ctx context.Context) error {
	return s.Client.Del(ctx, s.key()).Err()
}

func decode(data []byte) (*domain.Identity, error) {
	identity := domain.Identity{}
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("malformed session record: %w", err)
	}
	stripped := identity.Stripped()
	return &stripped, nil
}
