package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const idempotencyConstraint = "orders_user_idempotency_key"

const orderColumns = `SELECT o.id, o.order_number, o.user_id, o.status, o.payment_status,
	o.subtotal_cents, o.shipping_cents, o.tax_cents, o.total_cents, o.shipping_address,
	o.notes, coalesce(o.idempotency_key, ''), o.created_at, o.updated_at FROM orders o`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// maxTxAttempts bounds how often a transaction aborted by a deadlock or a
// serialization failure is run again.
const maxTxAttempts = 3

// InTx runs fn in one transaction; an error from fn rolls everything back.
// A transaction the server aborted to break a deadlock is retried, and
// reported as Conflict once the attempts run out.
func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err = r.inTx(ctx, fn); !retryable(err) {
			return err
		}
	}
	return apperr.Wrap(apperr.KindConflict, "order collided with a concurrent change, retry", err)
}

// retryable reports deadlock_detected and serialization_failure.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40P01" || pgErr.Code == "40001")
}

func (r *Repo) inTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	return one(ctx, r.DB, orderColumns+` WHERE o.id = $1`, id)
}

func (r *Repo) ByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error) {
	return one(ctx, r.DB, orderColumns+` WHERE o.user_id = $1 AND o.idempotency_key = $2`, userID, key)
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}
	sql := orderColumns
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	sql += fmt.Sprintf(` ORDER BY o.created_at DESC, o.id LIMIT $%d`, len(args))

	out, err := scanOrders(ctx, r.DB, sql, args...)
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.DB, out); err != nil {
		return nil, err
	}
	return out, nil
}

type pgTx struct{ tx pgx.Tx }

// PriceBook leaves ids that are not uuids out of the book.
func (t *pgTx) PriceBook(ctx context.Context, ids []string) (map[string]PricedProduct, error) {
	ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return !postgres.ValidID(id) })
	book := map[string]PricedProduct{}
	if len(ids) == 0 {
		return book, nil
	}
	rows, err := t.tx.Query(ctx, `SELECT id, name, price_cents, active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			p     PricedProduct
			price int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.Active); err != nil {
			rows.Close()
			return nil, err
		}
		p.Price = pricing.Cents(price)
		p.Variants = map[string]PricedVariant{}
		book[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.tx.Query(ctx, `SELECT id, product_id, name, price_cents FROM product_variants WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v     PricedVariant
			pid   string
			price *int64
		)
		if err := rows.Scan(&v.ID, &pid, &v.Name, &price); err != nil {
			return nil, err
		}
		if price != nil {
			c := pricing.Cents(*price)
			v.Price = &c
		}
		if p, ok := book[pid]; ok {
			p.Variants[v.ID] = v
		}
	}
	return book, rows.Err()
}

// Decrement is a conditional update, so concurrent placements serialize on
// the row lock and the loser sees the reduced stock. The product row is
// locked before its variant row; on !ok the caller rolls back.
func (t *pgTx) Decrement(ctx context.Context, productID, variantID string, qty int) (int, bool, error) {
	var productLeft int
	err := t.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`, productID, qty).Scan(&productLeft)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if variantID == "" {
		return productLeft, true, nil
	}

	var variantLeft int
	err = t.tx.QueryRow(ctx, `
		UPDATE product_variants SET stock = stock - $3
		WHERE id = $2 AND product_id = $1 AND stock >= $3
		RETURNING stock`, productID, variantID, qty).Scan(&variantLeft)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return variantLeft, true, nil
}

func (t *pgTx) Restock(ctx context.Context, productID, variantID string, qty int) error {
	if _, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		productID, qty); err != nil {
		return err
	}
	if variantID == "" {
		return nil
	}
	// the variant may have been replaced since; the product stock still counts.
	_, err := t.tx.Exec(ctx, `UPDATE product_variants SET stock = stock + $3 WHERE id = $2 AND product_id = $1`,
		productID, variantID, qty)
	return err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, payment_status, subtotal_cents,
			shipping_cents, tax_cents, total_cents, shipping_address, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING created_at, updated_at`,
		o.ID, o.Number, o.UserID, string(o.Status), string(o.PaymentStatus), int64(o.Subtotal),
		int64(o.Shipping), int64(o.Tax), int64(o.Total), o.ShippingAddress, o.Notes, o.IdempotencyKey,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == idempotencyConstraint {
			return ErrDuplicateIdempotencyKey
		}
		return err
	}

	b := &pgx.Batch{}
	for _, it := range o.Items {
		b.Queue(`
			INSERT INTO order_items (id, order_id, product_id, variant_id, name, variant_name, price_cents, quantity)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`,
			it.ID, o.ID, it.ProductID, it.VariantID, it.Name, it.VariantName, int64(it.UnitPrice), it.Quantity)
	}
	return t.tx.SendBatch(ctx, b).Close()
}

// SaveAddress adds the address to the user's book unless it is already
// there. The first address becomes the default.
func (t *pgTx) SaveAddress(ctx context.Context, userID string, a Address) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO addresses (id, user_id, first_name, last_name, email, phone, address1, address2,
			city, state, zip, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			NOT EXISTS (SELECT 1 FROM addresses WHERE user_id = $2))
		ON CONFLICT (user_id, address1, zip, country) DO NOTHING`,
		uuid.NewString(), userID, a.FirstName, a.LastName, a.Email, a.Phone, a.Address1, a.Address2,
		a.City, a.State, a.Zip, a.Country)
	return err
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (*Order, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	return one(ctx, t.tx, orderColumns+` WHERE o.id = $1 FOR UPDATE`, id)
}

func (t *pgTx) SetStatus(ctx context.Context, id string, s Status, p PaymentStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, payment_status = $3, updated_at = now() WHERE id = $1`,
		id, string(s), string(p))
	return err
}

func one(ctx context.Context, q querier, sql string, args ...any) (*Order, error) {
	list, err := scanOrders(ctx, q, sql, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	if err := loadItems(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func scanOrders(ctx context.Context, q querier, sql string, args ...any) ([]Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var (
			o                              Order
			status, payment                string
			subtotal, shipping, tax, total int64
		)
		err := row.Scan(&o.ID, &o.Number, &o.UserID, &status, &payment,
			&subtotal, &shipping, &tax, &total, &o.ShippingAddress,
			&o.Notes, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt)
		o.Status, o.PaymentStatus = Status(status), PaymentStatus(payment)
		o.Subtotal, o.Shipping = pricing.Cents(subtotal), pricing.Cents(shipping)
		o.Tax, o.Total = pricing.Cents(tax), pricing.Cents(total)
		o.Items = []Item{}
		return o, err
	})
}

func loadItems(ctx context.Context, q querier, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]*Order, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = &list[i]
	}
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, coalesce(variant_id::text, ''), name, variant_name, price_cents, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY seq`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it      Item
			orderID string
			price   int64
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.VariantID, &it.Name, &it.VariantName,
			&price, &it.Quantity); err != nil {
			return err
		}
		it.UnitPrice = pricing.Cents(price)
		if o := index[orderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}
