// Package inventory reacts to placed orders: it refreshes the catalog cache
// and raises low-stock alerts.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const dedupScope = "inventory"

type Publisher interface {
	Publish(topic string, key, value []byte, eventType string)
}

type Invalidator interface {
	DeletePattern(ctx context.Context, pattern string) error
}

type Service struct {
	Redis       redis.Cmdable
	Catalog     Invalidator
	Publisher   Publisher
	ServiceName string
	Threshold   int
	Log         *zap.Logger
}

// HandleOrderPlaced is installed as the order.placed consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	log := logx.OrNop(s.Log)

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: commit and move on
		log.Error("undecodable event dropped", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, dedupScope, env.EventID)
	won, err := redisx.Claim(ctx, s.Redis, dkey, "1", redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !won {
		log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
		return nil
	}

	if err := s.process(ctx, env); err != nil {
		// let the redelivery through
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	return nil
}

func (s *Service) process(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		logx.OrNop(s.Log).Error("bad order.placed payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if s.Catalog != nil {
		if err := s.Catalog.DeletePattern(ctx, "*"); err != nil {
			return fmt.Errorf("invalidate catalog: %w", err)
		}
	}
	for _, lvl := range p.Stock {
		if lvl.Remaining > s.Threshold {
			continue
		}
		if err := s.alert(ctx, env, lvl); err != nil {
			return err
		}
	}
	return nil
}

// alert publishes at most one ProductStockLow per product (or variant) per TTLStockLow.
func (s *Service) alert(ctx context.Context, env orders.Envelope, lvl orders.StockLevel) error {
	id := lvl.ProductID
	if lvl.VariantID != "" {
		id += ":" + lvl.VariantID
	}
	won, err := redisx.Claim(ctx, s.Redis, fmt.Sprintf(redisx.KeyStockLow, id), "1", redisx.TTLStockLow)
	if err != nil {
		return fmt.Errorf("stock alert claim: %w", err)
	}
	if !won {
		return nil
	}

	ev, err := orders.NewEnvelope(orders.EventProductStockLow, s.ServiceName, env.CorrelationID,
		orders.ProductStockLowPayload{
			ProductID: lvl.ProductID,
			VariantID: lvl.VariantID,
			Remaining: lvl.Remaining,
			Threshold: s.Threshold,
		})
	if err != nil {
		return err
	}
	ev.TraceID = env.TraceID
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if s.Publisher != nil {
		s.Publisher.Publish(orders.TopicProductStockLow, []byte(lvl.ProductID), b, orders.EventProductStockLow)
	}
	logx.OrNop(s.Log).Info("stock low",
		zap.String("product_id", lvl.ProductID),
		zap.String("variant_id", lvl.VariantID),
		zap.Int("remaining", lvl.Remaining))
	return nil
}
