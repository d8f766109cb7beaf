package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventProductStockLow    = "ProductStockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// ---- Payload tipe per event ----

type ItemPrice struct {
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

type OrderPlacedPayload struct {
	OrderID     string       `json:"order_id"`
	OrderNumber string       `json:"order_number"`
	UserID      string       `json:"user_id"`
	Items       []ItemPrice  `json:"items"`
	TotalCents  int64        `json:"total_cents"`
	Stock       []StockLevel `json:"stock"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type ProductStockLowPayload struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Remaining int    `json:"remaining"`
	Threshold int    `json:"threshold"`
}

func placedPayload(o *Order, levels []StockLevel) OrderPlacedPayload {
	p := OrderPlacedPayload{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Items:       make([]ItemPrice, len(o.Items)),
		TotalCents:  int64(o.Total),
		Stock:       levels,
	}
	for i, it := range o.Items {
		p.Items[i] = ItemPrice{
			ProductID:  it.ProductID,
			VariantID:  it.VariantID,
			Qty:        it.Quantity,
			PriceCents: int64(it.UnitPrice),
		}
	}
	return p
}
