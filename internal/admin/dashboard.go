// Package admin aggregates the back-office dashboard.
package admin

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	recentOrdersLimit = 8
	lowStockLimit     = 5
)

type RecentOrder struct {
	ID         string               `json:"id"`
	Number     string               `json:"orderNumber"`
	Customer   string               `json:"customer"`
	Email      string               `json:"email"`
	Status     orders.Status        `json:"status"`
	Payment    orders.PaymentStatus `json:"paymentStatus"`
	Total      pricing.Cents        `json:"total"`
	TotalItems int                  `json:"totalItems"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type LowStockProduct struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

type Dashboard struct {
	Revenue          pricing.Cents     `json:"revenue"`
	RevenueFormatted string            `json:"revenueFormatted"`
	Orders           int               `json:"orders"`
	Users            int               `json:"users"`
	ActiveProducts   int               `json:"activeProducts"`
	RecentOrders     []RecentOrder     `json:"recentOrders"`
	LowStock         []LowStockProduct `json:"lowStock"`
	LowStockAt       int               `json:"lowStockThreshold"`
}

type Store interface {
	Revenue(ctx context.Context) (pricing.Cents, error)
	CountOrders(ctx context.Context) (int, error)
	CountUsers(ctx context.Context) (int, error)
	CountActiveProducts(ctx context.Context) (int, error)
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
	LowStock(ctx context.Context, threshold, limit int) ([]LowStockProduct, error)
}

type Service struct {
	store     Store
	threshold int
	log       *zap.Logger
}

func NewService(store Store, lowStockThreshold int, log *zap.Logger) *Service {
	return &Service{store: store, threshold: lowStockThreshold, log: logx.OrNop(log)}
}

// Dashboard runs every KPI query concurrently; any failure fails the whole view.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{LowStockAt: s.threshold}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { d.Revenue, err = s.store.Revenue(ctx); return })
	g.Go(func() (err error) { d.Orders, err = s.store.CountOrders(ctx); return })
	g.Go(func() (err error) { d.Users, err = s.store.CountUsers(ctx); return })
	g.Go(func() (err error) { d.ActiveProducts, err = s.store.CountActiveProducts(ctx); return })
	g.Go(func() (err error) { d.RecentOrders, err = s.store.RecentOrders(ctx, recentOrdersLimit); return })
	g.Go(func() (err error) { d.LowStock, err = s.store.LowStock(ctx, s.threshold, lowStockLimit); return })

	if err := g.Wait(); err != nil {
		s.log.Error("dashboard query failed", zap.Error(err))
		return nil, err
	}
	if d.RecentOrders == nil {
		d.RecentOrders = []RecentOrder{}
	}
	if d.LowStock == nil {
		d.LowStock = []LowStockProduct{}
	}
	d.RevenueFormatted = pricing.Format(d.Revenue)
	return d, nil
}
