package admin

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Revenue leaves out cancelled orders.
func (r *Repo) Revenue(ctx context.Context) (pricing.Cents, error) {
	var c int64
	err := r.DB.QueryRow(ctx,
		`SELECT coalesce(sum(total_cents), 0) FROM orders WHERE status <> $1`,
		string(orders.StatusCancelled)).Scan(&c)
	return pricing.Cents(c), err
}

func (r *Repo) CountOrders(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM orders`)
}

func (r *Repo) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM users`)
}

func (r *Repo) CountActiveProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products WHERE active`)
}

func (r *Repo) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.order_number, u.name, u.email, o.status, o.payment_status, o.total_cents,
		       coalesce((SELECT sum(i.quantity) FROM order_items i WHERE i.order_id = o.id), 0),
		       o.created_at
		FROM orders o JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecentOrder
	for rows.Next() {
		var (
			ro              RecentOrder
			status, payment string
			total           int64
		)
		if err := rows.Scan(&ro.ID, &ro.Number, &ro.Customer, &ro.Email, &status, &payment,
			&total, &ro.TotalItems, &ro.CreatedAt); err != nil {
			return nil, err
		}
		ro.Status = orders.Status(status)
		ro.Payment = orders.PaymentStatus(payment)
		ro.Total = pricing.Cents(total)
		out = append(out, ro)
	}
	return out, rows.Err()
}

func (r *Repo) LowStock(ctx context.Context, threshold, limit int) ([]LowStockProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, sku, stock FROM products
		WHERE active AND stock <= $1
		ORDER BY stock, id
		LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LowStockProduct
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) count(ctx context.Context, sql string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, sql).Scan(&n)
	return n, err
}
