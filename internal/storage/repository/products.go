package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// SampleProducts is the catalogue inserted into an empty products table.
var SampleProducts = []models.Product{
	{Name: "شركة أبل", Description: "شركة تقنية أمريكية متخصصة في الأجهزة الإلكترونية"},
	{Name: "شركة سامسونج", Description: "شركة كورية جنوبية متخصصة في الإلكترونيات والهواتف"},
	{Name: "شركة مايكروسوفت", Description: "شركة تقنية أمريكية متخصصة في البرمجيات والحوسبة"},
	{Name: "شركة ديل", Description: "شركة أمريكية متخصصة في أجهزة الكمبيوتر والخوادم"},
	{Name: "شركة إتش بي", Description: "شركة أمريكية متخصصة في أجهزة الكمبيوتر والطابعات"},
	{Name: "شركة لينوفو", Description: "شركة صينية متخصصة في أجهزة الكمبيوتر والأجهزة المحمولة"},
	{Name: "شركة آسوس", Description: "شركة تايوانية متخصصة في أجهزة الكمبيوتر والمكونات"},
	{Name: "شركة سوني", Description: "شركة يابانية متخصصة في الإلكترونيات والترفيه"},
	{Name: "شركة كانون", Description: "شركة يابانية متخصصة في الكاميرات والطابعات"},
	{Name: "شركة إنتل", Description: "شركة أمريكية متخصصة في معالجات الكمبيوتر"},
}

// ListProducts returns every product ordered by name.
func (s *Storage) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.ListProducts"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM products ORDER BY name`)
	if err != nil {
		return nil, apperr.Backend(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, apperr.Backend(op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Backend(op, err)
	}
	return result, nil
}

// GetProduct returns one product.
func (s *Storage) GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error) {
	const op = "storage.GetProduct"
	if err := ctxDone(ctx, op); err != nil {
		return models.Product{}, err
	}

	var p models.Product
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		return models.Product{}, notFound(op, "product_not_found", err)
	}
	return p, nil
}

// GetProductsByIDs resolves ids in the given order. A missing id fails the
// whole call with product_not_found.
func (s *Storage) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	const op = "storage.GetProductsByIDs"
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, &apperr.Error{Kind: apperr.KindOf(err), Op: op, Code: apperr.CodeOf(err), Field: "product_ids", Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}

// SeedProducts inserts SampleProducts when the table is empty and returns
// the number of inserted rows.
func (s *Storage) SeedProducts(ctx context.Context) (int, error) {
	const op = "storage.SeedProducts"
	if err := ctxDone(ctx, op); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, p := range SampleProducts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO products (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
				p.Name, p.Description); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Backend(op, err)
	}
	return inserted, nil
}

// CountProducts returns the number of products.
func (s *Storage) CountProducts(ctx context.Context) (int, error) {
	return s.count(ctx, "storage.CountProducts", `SELECT COUNT(*) FROM products`)
}
