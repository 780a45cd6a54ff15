package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

const warrantySelect = `
	SELECT w.id, w.customer_id, w.product_id, w.warranty_number, w.purchase_date,
		w.warranty_start_date, w.warranty_end_date, w.warranty_duration_months, w.notes,
		w.created_by, w.updated_by, w.created_at, w.updated_at,
		c.id, c.name, c.phone, c.invoice_number, c.created_at, c.updated_at,
		p.id, p.name, p.description, p.created_at,
		cu.id, cu.email, cu.full_name,
		uu.id, uu.email, uu.full_name
	FROM warranties w
	JOIN customers c ON c.id = w.customer_id
	JOIN products p ON p.id = w.product_id
	LEFT JOIN users cu ON cu.id = w.created_by
	LEFT JOIN users uu ON uu.id = w.updated_by`

const warrantyOrder = ` ORDER BY w.created_at DESC, w.id`

const warrantyColumns = `id, customer_id, product_id, warranty_number, purchase_date,
	warranty_start_date, warranty_end_date, warranty_duration_months, notes,
	created_by, updated_by, created_at, updated_at`

type userRefScan struct {
	id       uuid.NullUUID
	email    sql.NullString
	fullName sql.NullString
}

func (u userRefScan) ref() *models.UserRef {
	if !u.id.Valid {
		return nil
	}
	return &models.UserRef{ID: u.id.UUID, Email: u.email.String, FullName: u.fullName.String}
}

func scanWarrantyRow(row interface{ Scan(...any) error }) (models.Warranty, error) {
	var (
		w                  models.Warranty
		createdBy, updated uuid.NullUUID
	)
	err := row.Scan(&w.ID, &w.CustomerID, &w.ProductID, &w.WarrantyNumber, &w.PurchaseDate,
		&w.WarrantyStartDate, &w.WarrantyEndDate, &w.WarrantyDurationMonths, &w.Notes,
		&createdBy, &updated, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return models.Warranty{}, err
	}
	setAuthors(&w, createdBy, updated)
	return w, nil
}

func scanJoinedWarranty(row interface{ Scan(...any) error }) (models.Warranty, error) {
	var (
		w                  models.Warranty
		c                  models.Customer
		p                  models.Product
		createdBy, updated uuid.NullUUID
		creator, updater   userRefScan
	)
	err := row.Scan(&w.ID, &w.CustomerID, &w.ProductID, &w.WarrantyNumber, &w.PurchaseDate,
		&w.WarrantyStartDate, &w.WarrantyEndDate, &w.WarrantyDurationMonths, &w.Notes,
		&createdBy, &updated, &w.CreatedAt, &w.UpdatedAt,
		&c.ID, &c.Name, &c.Phone, &c.InvoiceNumber, &c.CreatedAt, &c.UpdatedAt,
		&p.ID, &p.Name, &p.Description, &p.CreatedAt,
		&creator.id, &creator.email, &creator.fullName,
		&updater.id, &updater.email, &updater.fullName)
	if err != nil {
		return models.Warranty{}, err
	}
	setAuthors(&w, createdBy, updated)
	w.Customer, w.Product = &c, &p
	w.Creator, w.Updater = creator.ref(), updater.ref()
	return w, nil
}

func setAuthors(w *models.Warranty, createdBy, updatedBy uuid.NullUUID) {
	if createdBy.Valid {
		id := createdBy.UUID
		w.CreatedBy = &id
	}
	if updatedBy.Valid {
		id := updatedBy.UUID
		w.UpdatedBy = &id
	}
}

func (s *Storage) queryWarranties(ctx context.Context, op, query string, args ...any) ([]models.Warranty, error) {
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Backend(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Warranty{}
	for rows.Next() {
		w, err := scanJoinedWarranty(rows)
		if err != nil {
			return nil, apperr.Backend(op, err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Backend(op, err)
	}
	return result, nil
}

// ListWarranties returns every warranty with its customer, product and
// authors, newest first.
func (s *Storage) ListWarranties(ctx context.Context) ([]models.Warranty, error) {
	return s.queryWarranties(ctx, "storage.ListWarranties", warrantySelect+warrantyOrder)
}

// ListCustomerWarranties returns the warranties of one customer, newest first.
func (s *Storage) ListCustomerWarranties(ctx context.Context, customerID uuid.UUID) ([]models.Warranty, error) {
	return s.queryWarranties(ctx, "storage.ListCustomerWarranties",
		warrantySelect+` WHERE w.customer_id = $1`+warrantyOrder, customerID)
}

// SearchWarranties matches customers by exact invoice number and/or phone.
// An empty key is ignored; both keys are ANDed.
func (s *Storage) SearchWarranties(ctx context.Context, params models.SearchParams) ([]models.Warranty, error) {
	return s.queryWarranties(ctx, "storage.SearchWarranties",
		warrantySelect+`
		WHERE ($1::text = '' OR c.invoice_number = $1)
		  AND ($2::text = '' OR c.phone = $2)`+warrantyOrder,
		params.InvoiceNumber, params.PhoneNumber)
}

// ListExpiringWarranties returns warranties whose end date lies in [from, to].
func (s *Storage) ListExpiringWarranties(ctx context.Context, from, to time.Time) ([]models.Warranty, error) {
	return s.queryWarranties(ctx, "storage.ListExpiringWarranties",
		warrantySelect+` WHERE w.warranty_end_date BETWEEN $1 AND $2`+warrantyOrder, from, to)
}

// GetWarranty returns one warranty without joins.
func (s *Storage) GetWarranty(ctx context.Context, id uuid.UUID) (models.Warranty, error) {
	const op = "storage.GetWarranty"
	if err := ctxDone(ctx, op); err != nil {
		return models.Warranty{}, err
	}

	w, err := scanWarrantyRow(s.DB.QueryRowContext(ctx,
		`SELECT `+warrantyColumns+` FROM warranties WHERE id = $1`, id))
	if err != nil {
		return models.Warranty{}, notFound(op, "warranty_not_found", err)
	}
	return w, nil
}

func insertWarranties(ctx context.Context, q querier, customerID uuid.UUID, items []models.Warranty, userID uuid.UUID) ([]models.Warranty, error) {
	out := make([]models.Warranty, 0, len(items))
	for _, w := range items {
		if customerID != uuid.Nil {
			w.CustomerID = customerID
		}
		stored, err := scanWarrantyRow(q.QueryRowContext(ctx,
			`INSERT INTO warranties (customer_id, product_id, warranty_number, purchase_date,
				warranty_start_date, warranty_end_date, warranty_duration_months, notes, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+warrantyColumns,
			w.CustomerID, w.ProductID, w.WarrantyNumber, w.PurchaseDate,
			w.WarrantyStartDate, w.WarrantyEndDate, w.WarrantyDurationMonths, w.Notes,
			uuid.NullUUID{UUID: userID, Valid: userID != uuid.Nil}))
		if err != nil {
			return nil, err
		}
		stored.Customer, stored.Product = w.Customer, w.Product
		out = append(out, stored)
	}
	return out, nil
}

// CreateWarranties inserts the rows in one transaction with created_by set
// to userID.
func (s *Storage) CreateWarranties(ctx context.Context, items []models.Warranty, userID uuid.UUID) ([]models.Warranty, error) {
	const op = "storage.CreateWarranties"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	var created []models.Warranty
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = insertWarranties(ctx, tx, uuid.Nil, items, userID)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(op, err)
	}
	return created, nil
}

// IssueCertificate stores a customer and its warranties atomically.
func (s *Storage) IssueCertificate(ctx context.Context, customer models.Customer, items []models.Warranty, userID uuid.UUID) (models.Customer, []models.Warranty, error) {
	const op = "storage.IssueCertificate"
	if err := ctxDone(ctx, op); err != nil {
		return models.Customer{}, nil, err
	}

	var (
		stored  models.Customer
		created []models.Warranty
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		stored, err = insertCustomer(ctx, tx, customer)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].Customer = &stored
		}
		created, err = insertWarranties(ctx, tx, stored.ID, items, userID)
		return err
	})
	if err != nil {
		return models.Customer{}, nil, apperr.Backend(op, err)
	}
	return stored, created, nil
}

// UpdateWarranty writes the non-nil columns of change and stamps updated_by.
func (s *Storage) UpdateWarranty(ctx context.Context, id uuid.UUID, change models.WarrantyChange, userID uuid.UUID) (models.Warranty, error) {
	const op = "storage.UpdateWarranty"
	if err := ctxDone(ctx, op); err != nil {
		return models.Warranty{}, err
	}

	w, err := scanWarrantyRow(s.DB.QueryRowContext(ctx,
		`UPDATE warranties SET
			purchase_date = COALESCE($2, purchase_date),
			warranty_start_date = COALESCE($3, warranty_start_date),
			warranty_end_date = COALESCE($4, warranty_end_date),
			warranty_duration_months = COALESCE($5, warranty_duration_months),
			notes = COALESCE($6, notes),
			updated_by = $7,
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+warrantyColumns,
		id, change.PurchaseDate, change.WarrantyStartDate, change.WarrantyEndDate,
		change.WarrantyDurationMonths, change.Notes,
		uuid.NullUUID{UUID: userID, Valid: userID != uuid.Nil}))
	if err != nil {
		return models.Warranty{}, notFound(op, "warranty_not_found", err)
	}
	return w, nil
}

// DeleteWarranty removes one warranty.
func (s *Storage) DeleteWarranty(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteWarranty"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM warranties WHERE id = $1`, id)
	if err != nil {
		return apperr.Backend(op, err)
	}
	return expectRows(res, op, "warranty_not_found")
}

// ApplyCertificateEdit updates the customer, deletes, extends and creates
// warranties in one transaction. Warranties of other customers are never
// touched.
func (s *Storage) ApplyCertificateEdit(ctx context.Context, customerID uuid.UUID, edit models.CertificateEdit, userID uuid.UUID) ([]models.Warranty, error) {
	const op = "storage.ApplyCertificateEdit"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	updatedBy := uuid.NullUUID{UUID: userID, Valid: userID != uuid.Nil}
	var created []models.Warranty
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		customer, err := updateCustomer(ctx, tx, customerID, edit.Customer)
		if err != nil {
			return notFound(op, "customer_not_found", err)
		}

		for _, id := range edit.Delete {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM warranties WHERE id = $1 AND customer_id = $2`, id, customerID)
			if err != nil {
				return err
			}
			if err := expectRows(res, op, "warranty_not_found"); err != nil {
				return err
			}
		}

		for _, ext := range edit.Extend {
			res, err := tx.ExecContext(ctx,
				`UPDATE warranties SET
					warranty_end_date = $3,
					warranty_duration_months = $4,
					updated_by = $5,
					updated_at = NOW()
				 WHERE id = $1 AND customer_id = $2`,
				ext.ID, customerID, ext.EndDate, ext.DurationMonths, updatedBy)
			if err != nil {
				return err
			}
			if err := expectRows(res, op, "warranty_not_found"); err != nil {
				return err
			}
		}

		for i := range edit.Create {
			edit.Create[i].Customer = &customer
		}
		created, err = insertWarranties(ctx, tx, customerID, edit.Create, userID)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(op, err)
	}
	return created, nil
}

// CountWarranties returns the number of warranties.
func (s *Storage) CountWarranties(ctx context.Context) (int, error) {
	return s.count(ctx, "storage.CountWarranties", `SELECT COUNT(*) FROM warranties`)
}
