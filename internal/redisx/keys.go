package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{user_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cart ledger: cart:{namespace}:{owner}
	KeyCart = "cart:%s:%s"

	// Low stock alert throttle: stock_low:{product_id}[:{variant_id}]
	KeyStockLow = "stock_low:%s"

	// Catalog cache entries live under this prefix.
	PrefixCatalog = "catalog:"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLStockLow    = time.Hour
)
