package cart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each ledger as one JSON value with a sliding TTL.
type RedisStore struct {
	rdb       redis.Cmdable
	namespace string
	ttl       time.Duration
}

func NewRedisStore(rdb redis.Cmdable, namespace string, ttl time.Duration) *RedisStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) key(owner string) string {
	return fmt.Sprintf(redisx.KeyCart, s.namespace, owner)
}

func (s *RedisStore) Load(ctx context.Context, owner string) ([]Line, error) {
	b, err := s.rdb.Get(ctx, s.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func (s *RedisStore) Save(ctx context.Context, owner string, lines []Line) error {
	b, err := encode(lines)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(owner), b, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	return s.rdb.Del(ctx, s.key(owner)).Err()
}

// FileStore keeps each ledger in its own JSON file under dir.
type FileStore struct {
	dir       string
	namespace string
}

func NewFileStore(dir, namespace string) (*FileStore, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cart dir: %w", err)
	}
	return &FileStore{dir: dir, namespace: namespace}, nil
}

func (s *FileStore) path(owner string) string {
	name := fmt.Sprintf("%s-%016x.json", s.namespace, xxhash.Sum64String(owner))
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Load(_ context.Context, owner string) ([]Line, error) {
	b, err := os.ReadFile(s.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

// Save writes a temp file and renames it over the old one.
func (s *FileStore) Save(_ context.Context, owner string, lines []Line) error {
	b, err := encode(lines)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, ".cart-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path(owner)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, owner string) error {
	err := os.Remove(s.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore keeps encoded ledgers in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, owner string) ([]Line, error) {
	s.mu.Lock()
	b, ok := s.docs[owner]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decode(b)
}

func (s *MemoryStore) Save(_ context.Context, owner string, lines []Line) error {
	b, err := encode(lines)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[owner] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	delete(s.docs, owner)
	s.mu.Unlock()
	return nil
}
