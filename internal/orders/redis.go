package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type RedisIdempotency struct{ RDB redis.Cmdable }

func (r RedisIdempotency) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := r.RDB.Get(ctx, fmt.Sprintf(redisx.KeyIdemOrderCreate, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (r RedisIdempotency) Remember(ctx context.Context, userID, key, orderID string) error {
	return r.RDB.Set(ctx, fmt.Sprintf(redisx.KeyIdemOrderCreate, userID, key), orderID, redisx.TTLIdempotency).Err()
}

type RedisStatusCache struct{ RDB redis.Cmdable }

func (r RedisStatusCache) Get(ctx context.Context, orderID string) (*StatusView, bool, error) {
	b, err := r.RDB.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v StatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

func (r RedisStatusCache) Set(ctx context.Context, v StatusView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.RDB.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, v.OrderID), b, redisx.TTLStatusCache).Err()
}
