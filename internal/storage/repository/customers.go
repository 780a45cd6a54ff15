package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

const customerColumns = `id, name, phone, invoice_number, COALESCE(request_token, ''), created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.InvoiceNumber, &c.RequestToken, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func insertCustomer(ctx context.Context, q querier, c models.Customer) (models.Customer, error) {
	row := q.QueryRowContext(ctx,
		`INSERT INTO customers (name, phone, invoice_number, request_token)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+customerColumns,
		c.Name, c.Phone, c.InvoiceNumber, nullString(c.RequestToken))
	return scanCustomer(row)
}

// CreateCustomer inserts a customer and returns the stored row.
func (s *Storage) CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	const op = "storage.CreateCustomer"
	if err := ctxDone(ctx, op); err != nil {
		return models.Customer{}, err
	}

	created, err := insertCustomer(ctx, s.DB, c)
	if err != nil {
		return models.Customer{}, apperr.Backend(op, err)
	}
	return created, nil
}

// GetCustomer returns one customer.
func (s *Storage) GetCustomer(ctx context.Context, id uuid.UUID) (models.Customer, error) {
	const op = "storage.GetCustomer"
	if err := ctxDone(ctx, op); err != nil {
		return models.Customer{}, err
	}

	c, err := scanCustomer(s.DB.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return models.Customer{}, notFound(op, "customer_not_found", err)
	}
	return c, nil
}

// FindCustomerByRequestToken returns the customer created by an earlier
// request carrying the same idempotency token.
func (s *Storage) FindCustomerByRequestToken(ctx context.Context, token string) (models.Customer, error) {
	const op = "storage.FindCustomerByRequestToken"
	if err := ctxDone(ctx, op); err != nil {
		return models.Customer{}, err
	}

	c, err := scanCustomer(s.DB.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE request_token = $1`, token))
	if err != nil {
		return models.Customer{}, notFound(op, "customer_not_found", err)
	}
	return c, nil
}

func updateCustomer(ctx context.Context, q querier, id uuid.UUID, p models.CustomerPatch) (models.Customer, error) {
	return scanCustomer(q.QueryRowContext(ctx,
		`UPDATE customers SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			invoice_number = COALESCE($4, invoice_number),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+customerColumns,
		id, p.Name, p.Phone, p.InvoiceNumber))
}

// UpdateCustomer applies a partial update and returns the stored row.
func (s *Storage) UpdateCustomer(ctx context.Context, id uuid.UUID, p models.CustomerPatch) (models.Customer, error) {
	const op = "storage.UpdateCustomer"
	if err := ctxDone(ctx, op); err != nil {
		return models.Customer{}, err
	}

	c, err := updateCustomer(ctx, s.DB, id, p)
	if err != nil {
		return models.Customer{}, notFound(op, "customer_not_found", err)
	}
	return c, nil
}

// DeleteCustomer removes the customer's warranties and then the customer in
// one transaction. It returns the ids of the deleted warranties.
func (s *Storage) DeleteCustomer(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	const op = "storage.DeleteCustomer"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	var deleted []uuid.UUID
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `DELETE FROM warranties WHERE customer_id = $1 RETURNING id`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var wid uuid.UUID
			if err := rows.Scan(&wid); err != nil {
				_ = rows.Close()
				return err
			}
			deleted = append(deleted, wid)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return expectRows(res, op, "customer_not_found")
	})
	if err != nil {
		return nil, apperr.Backend(op, err)
	}
	return deleted, nil
}

// CountCustomers returns the number of customers.
func (s *Storage) CountCustomers(ctx context.Context) (int, error) {
	return s.count(ctx, "storage.CountCustomers", `SELECT COUNT(*) FROM customers`)
}
