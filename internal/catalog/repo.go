package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/ariefcatur/go-storefront/internal/query"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Repo is the Postgres catalog store.
type Repo struct{ DB *pgxpool.Pool }

const productColumns = `SELECT p.id, p.slug, p.name, p.description, p.short_description, p.sku,
	p.price_cents, p.compare_price_cents, p.stock, p.active, p.featured, p.category_id,
	c.name, c.slug, c.description, c.image, p.created_at, p.updated_at`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id`

type relations uint8

const (
	withImages relations = 1 << iota
	withVariants
	withRatings
	withTags
	withReviews
)

func (r *Repo) Search(ctx context.Context, q query.Query) ([]Product, int, error) {
	var args query.Args
	where, err := query.Compile(q.Where, &args)
	if err != nil {
		return nil, 0, err
	}
	countArgs := slices.Clone(args.Values())
	limit, offset := args.Add(q.Limit), args.Add(q.Offset)
	pageArgs := args.Values()

	g, gctx := errgroup.WithContext(ctx)
	var total int
	g.Go(func() error {
		return r.DB.QueryRow(gctx, `SELECT count(*)`+productFrom+` WHERE `+where, countArgs...).Scan(&total)
	})
	var products []Product
	g.Go(func() error {
		sql := productColumns + productFrom + ` WHERE ` + where +
			` ORDER BY ` + query.CompileOrder(q.OrderBy) + ` LIMIT ` + limit + ` OFFSET ` + offset
		var err error
		products, err = r.queryProducts(gctx, sql, pageArgs...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := r.load(ctx, products, withImages|withVariants|withRatings); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *Repo) BySlug(ctx context.Context, slug string) (*Product, error) {
	return r.one(ctx, `p.slug = $1`, slug)
}

func (r *Repo) ByID(ctx context.Context, id string) (*Product, error) {
	if !postgres.ValidID(id) {
		return nil, nil
	}
	return r.one(ctx, `p.id = $1`, id)
}

func (r *Repo) one(ctx context.Context, cond string, arg any) (*Product, error) {
	ps, err := r.queryProducts(ctx, productColumns+productFrom+` WHERE `+cond, arg)
	if err != nil || len(ps) == 0 {
		return nil, err
	}
	if err := r.load(ctx, ps, withImages|withVariants|withTags|withReviews); err != nil {
		return nil, err
	}
	return &ps[0], nil
}

func (r *Repo) Related(ctx context.Context, categoryID, excludeID string, limit int) ([]Product, error) {
	ps, err := r.queryProducts(ctx, productColumns+productFrom+`
		WHERE p.category_id = $1 AND p.id <> $2 AND p.active
		ORDER BY p.featured DESC, p.created_at DESC, p.id
		LIMIT $3`, categoryID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	if err := r.load(ctx, ps, withImages|withRatings); err != nil {
		return nil, err
	}
	return ps, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]Product, error) {
	ps, err := r.queryProducts(ctx, productColumns+productFrom+` ORDER BY p.created_at DESC, p.id`)
	if err != nil {
		return nil, err
	}
	if err := r.load(ctx, ps, withImages|withVariants); err != nil {
		return nil, err
	}
	return ps, nil
}

func (r *Repo) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, slug, description, image FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image)
		return c, err
	})
}

func (r *Repo) CategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `SELECT id, name, slug, description, image FROM categories WHERE slug = $1`, slug).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CategoryExists(ctx context.Context, id string) (bool, error) {
	if !postgres.ValidID(id) {
		return false, nil
	}
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *Repo) AddReview(ctx context.Context, rv *Review) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, title, body, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Body, rv.Verified).Scan(&rv.CreatedAt)
}

func (r *Repo) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_items oi JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status <> 'CANCELLED'
		)`, userID, productID).Scan(&ok)
	return ok, err
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO products (id, slug, name, description, short_description, sku, price_cents,
			compare_price_cents, stock, active, featured, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		p.ID, p.Slug, p.Name, p.Description, p.ShortDescription, p.SKU, int64(p.Price),
		centsArg(p.ComparePrice), p.Stock, p.Active, p.Featured, p.CategoryID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return uniqueConflict(err)
	}
	if err := writeChildren(ctx, tx, p, true); err != nil {
		return uniqueConflict(err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) Update(ctx context.Context, p *Product) error {
	if !postgres.ValidID(p.ID) {
		return apperr.NotFoundf("product %s not found", p.ID)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE products SET slug=$2, name=$3, description=$4, short_description=$5, sku=$6,
			price_cents=$7, compare_price_cents=$8, stock=$9, active=$10, featured=$11,
			category_id=$12, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		p.ID, p.Slug, p.Name, p.Description, p.ShortDescription, p.SKU, int64(p.Price),
		centsArg(p.ComparePrice), p.Stock, p.Active, p.Featured, p.CategoryID,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf("product %s not found", p.ID)
	}
	if err != nil {
		return uniqueConflict(err)
	}
	if err := writeChildren(ctx, tx, p, false); err != nil {
		return uniqueConflict(err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) Deactivate(ctx context.Context, id string) error {
	if !postgres.ValidID(id) {
		return apperr.NotFoundf("product %s not found", id)
	}
	tag, err := r.DB.Exec(ctx, `UPDATE products SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("product %s not found", id)
	}
	return nil
}

// writeChildren replaces images, variants and tags. On update a nil slice
// leaves that relation untouched.
func writeChildren(ctx context.Context, tx pgx.Tx, p *Product, fresh bool) error {
	if fresh || p.Images != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, p.ID); err != nil {
			return err
		}
		for _, im := range p.Images {
			if _, err := tx.Exec(ctx,
				`INSERT INTO product_images (id, product_id, url, alt, position) VALUES ($1, $2, $3, $4, $5)`,
				im.ID, p.ID, im.URL, im.Alt, im.Position); err != nil {
				return err
			}
		}
	}
	if fresh || p.Variants != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, p.ID); err != nil {
			return err
		}
		for _, v := range p.Variants {
			if _, err := tx.Exec(ctx, `
				INSERT INTO product_variants (id, product_id, name, sku, color, size, price_cents, stock)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				v.ID, p.ID, v.Name, v.SKU, v.Color, v.Size, centsArg(v.Price), v.Stock); err != nil {
				return err
			}
		}
	}
	if fresh || p.Tags != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM product_tags WHERE product_id = $1`, p.ID); err != nil {
			return err
		}
		for i := range p.Tags {
			t := &p.Tags[i]
			err := tx.QueryRow(ctx, `
				INSERT INTO tags (id, name, slug) VALUES (gen_random_uuid(), $1, $2)
				ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, t.Name, t.Slug).Scan(&t.ID)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO product_tags (product_id, tag_id) VALUES ($1, $2)`, p.ID, t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repo) queryProducts(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		var (
			p       Product
			price   int64
			compare *int64
		)
		err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.ShortDescription, &p.SKU,
			&price, &compare, &p.Stock, &p.Active, &p.Featured, &p.CategoryID,
			&p.Category.Name, &p.Category.Slug, &p.Category.Description, &p.Category.Image,
			&p.CreatedAt, &p.UpdatedAt)
		p.Price = pricing.Cents(price)
		p.ComparePrice = centsPtr(compare)
		p.Category.ID = p.CategoryID
		p.Images, p.Variants = []Image{}, []Variant{}
		return p, err
	})
}

// load fills the requested relations for all products with one query per
// relation.
func (r *Repo) load(ctx context.Context, ps []Product, rel relations) error {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]string, len(ps))
	index := make(map[string]*Product, len(ps))
	for i := range ps {
		ids[i] = ps[i].ID
		index[ps[i].ID] = &ps[i]
	}

	// each loader only touches its own field, so they can run concurrently.
	g, gctx := errgroup.WithContext(ctx)
	if rel&withImages != 0 {
		g.Go(func() error { return r.loadImages(gctx, ids, index) })
	}
	if rel&withVariants != 0 {
		g.Go(func() error { return r.loadVariants(gctx, ids, index) })
	}
	if rel&withRatings != 0 {
		g.Go(func() error { return r.loadRatings(gctx, ids, index) })
	}
	if rel&withTags != 0 {
		g.Go(func() error { return r.loadTags(gctx, ids, index) })
	}
	if rel&withReviews != 0 {
		g.Go(func() error { return r.loadReviews(gctx, ids, index) })
	}
	return g.Wait()
}

func (r *Repo) loadImages(ctx context.Context, ids []string, index map[string]*Product) error {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, id, url, alt, position FROM product_images
		WHERE product_id = ANY($1) ORDER BY position, seq`, ids)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		var im Image
		if err := rows.Scan(&pid, &im.ID, &im.URL, &im.Alt, &im.Position); err != nil {
			return err
		}
		if p := index[pid]; p != nil {
			p.Images = append(p.Images, im)
		}
	}
	return rows.Err()
}

func (r *Repo) loadVariants(ctx context.Context, ids []string, index map[string]*Product) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, name, sku, color, size, price_cents, stock FROM product_variants
		WHERE product_id = ANY($1) ORDER BY seq`, ids)
	if err != nil {
		return fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v Variant
		var price *int64
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Color, &v.Size, &price, &v.Stock); err != nil {
			return err
		}
		v.Price = centsPtr(price)
		if p := index[v.ProductID]; p != nil {
			p.Variants = append(p.Variants, v)
		}
	}
	return rows.Err()
}

func (r *Repo) loadRatings(ctx context.Context, ids []string, index map[string]*Product) error {
	rows, err := r.DB.Query(ctx, `SELECT product_id, rating FROM reviews WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		var rating int
		if err := rows.Scan(&pid, &rating); err != nil {
			return err
		}
		if p := index[pid]; p != nil {
			p.Ratings = append(p.Ratings, rating)
		}
	}
	return rows.Err()
}

func (r *Repo) loadTags(ctx context.Context, ids []string, index map[string]*Product) error {
	rows, err := r.DB.Query(ctx, `
		SELECT pt.product_id, t.id, t.name, t.slug FROM product_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ANY($1) ORDER BY t.name`, ids)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		var t Tag
		if err := rows.Scan(&pid, &t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}
		if p := index[pid]; p != nil {
			p.Tags = append(p.Tags, t)
		}
	}
	return rows.Err()
}

func (r *Repo) loadReviews(ctx context.Context, ids []string, index map[string]*Product) error {
	rows, err := r.DB.Query(ctx, `
		SELECT rv.id, rv.product_id, rv.user_id, u.name, rv.rating, rv.title, rv.body, rv.verified, rv.created_at
		FROM reviews rv JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id = ANY($1) ORDER BY rv.created_at DESC, rv.id`, ids)
	if err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.AuthorName, &rv.Rating,
			&rv.Title, &rv.Body, &rv.Verified, &rv.CreatedAt); err != nil {
			return err
		}
		if p := index[rv.ProductID]; p != nil {
			p.Reviews = append(p.Reviews, rv)
		}
	}
	return rows.Err()
}

func centsPtr(v *int64) *pricing.Cents {
	if v == nil {
		return nil
	}
	c := pricing.Cents(*v)
	return &c
}

func centsArg(c *pricing.Cents) *int64 {
	if c == nil {
		return nil
	}
	v := int64(*c)
	return &v
}

func uniqueConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Wrap(apperr.KindConflict, "slug or sku already in use", err)
	}
	return err
}
