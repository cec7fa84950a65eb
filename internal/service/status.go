package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"lecto-bridge/pkg/cache/redis"
)

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

var ErrExportNotFound = errors.New("export not found")

// Cache is the subset of the Redis client the status store needs.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SRem(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    *string   `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

// StatusStore keeps export statuses in Redis for exportTTL. Every key is also
// added to a set so a user's exports can be listed without SCAN.
type StatusStore struct {
	cache Cache
}

func NewStatusStore(cache Cache) *StatusStore {
	return &StatusStore{cache: cache}
}

func (s *StatusStore) Save(ctx context.Context, st *ExportStatus) error {
	if s == nil || s.cache == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode export status: %w", err)
	}

	if err := s.cache.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return fmt.Errorf("save export status: %w", err)
	}

	return s.cache.SAdd(ctx, exportSetKey, st.Key)
}

func (s *StatusStore) Get(ctx context.Context, key string) (*ExportStatus, error) {
	if s == nil || s.cache == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, ErrExportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load export status: %w", err)
	}

	var st ExportStatus
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}

	return &st, nil
}

// ListByUser returns the user's live exports, newest first. Keys whose value
// already expired are dropped from the set.
func (s *StatusStore) ListByUser(ctx context.Context, userID int64) ([]ExportStatus, error) {
	if s == nil || s.cache == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.cache.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		st, err := s.Get(ctx, key)
		if errors.Is(err, ErrExportNotFound) {
			_ = s.cache.SRem(ctx, exportSetKey, key)
			continue
		}
		if err != nil {
			continue
		}

		if st.UserID == userID {
			statuses = append(statuses, *st)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	return statuses, nil
}
