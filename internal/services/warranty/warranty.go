// Package services implements issuing, listing, editing and deleting
// warranty certificates.
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/cache"
	"github.com/magabrotheeeer/warranty-service/internal/events"
	"github.com/magabrotheeeer/warranty-service/internal/lib/listing"
	"github.com/magabrotheeeer/warranty-service/internal/lib/period"
	"github.com/magabrotheeeer/warranty-service/internal/lib/phone"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sanitize"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/metrics"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// MinNameLength is the shortest accepted customer name, in runes.
const MinNameLength = 2

// WarrantyRepository is the storage used by WarrantyService.
type WarrantyRepository interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListWarranties(ctx context.Context) ([]models.Warranty, error)
	ListCustomerWarranties(ctx context.Context, customerID uuid.UUID) ([]models.Warranty, error)
	SearchWarranties(ctx context.Context, params models.SearchParams) ([]models.Warranty, error)
	GetWarranty(ctx context.Context, id uuid.UUID) (models.Warranty, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (models.Customer, error)
	FindCustomerByRequestToken(ctx context.Context, token string) (models.Customer, error)
	IssueCertificate(ctx context.Context, customer models.Customer, items []models.Warranty, userID uuid.UUID) (models.Customer, []models.Warranty, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, p models.CustomerPatch) (models.Customer, error)
	UpdateWarranty(ctx context.Context, id uuid.UUID, change models.WarrantyChange, userID uuid.UUID) (models.Warranty, error)
	DeleteWarranty(ctx context.Context, id uuid.UUID) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	ApplyCertificateEdit(ctx context.Context, customerID uuid.UUID, edit models.CertificateEdit, userID uuid.UUID) ([]models.Warranty, error)
}

// Cache stores the read models.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Config holds the service settings taken from the application config.
type Config struct {
	CacheTTL time.Duration
	Location *time.Location
}

// ListResult is the certificate list view.
type ListResult struct {
	Groups   []models.CustomerGroup `json:"groups"`
	Summary  listing.Summary        `json:"summary"`
	Products []string               `json:"products"`
	Total    int                    `json:"total"`
}

// WarrantyService issues and maintains warranties. Lists are cached and
// every mutation publishes change events.
type WarrantyService struct {
	repo      WarrantyRepository
	cache     Cache
	publisher events.Publisher
	metrics   metrics.Recorder
	sanitizer *sanitize.Sanitizer
	log       *slog.Logger
	ttl       time.Duration
	loc       *time.Location
	now       func() time.Time
}

// NewWarrantyService creates a WarrantyService. Nil publisher and recorder
// are replaced with no-ops.
func NewWarrantyService(repo WarrantyRepository, cache Cache, publisher events.Publisher, rec metrics.Recorder, log *slog.Logger, cfg Config) *WarrantyService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &WarrantyService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   rec,
		sanitizer: sanitize.New(sanitize.DefaultMaxLength),
		log:       log,
		ttl:       cfg.CacheTTL,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

func (s *WarrantyService) today() time.Time {
	return period.StartOfDay(s.now().In(s.loc))
}

// inLocation reinterprets the calendar day of t in the service location.
func (s *WarrantyService) inLocation(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// localize moves the stored dates of w into the service location. The
// database hands TIMESTAMPTZ values back in the process zone.
func (s *WarrantyService) localize(w *models.Warranty) {
	for _, t := range []*time.Time{&w.PurchaseDate, &w.WarrantyStartDate, &w.WarrantyEndDate} {
		if !t.IsZero() {
			*t = t.In(s.loc)
		}
	}
}

func (s *WarrantyService) localizeAll(items []models.Warranty) []models.Warranty {
	for i := range items {
		s.localize(&items[i])
	}
	return items
}

type customerForm struct {
	name, phone, invoice string
}

func (s *WarrantyService) cleanForm(op, name, phoneNumber, invoice string) (customerForm, error) {
	f := customerForm{
		name:    s.sanitizer.Text(name),
		phone:   strings.TrimSpace(phoneNumber),
		invoice: s.sanitizer.Text(invoice),
	}
	if utf8.RuneCountInString(f.name) < MinNameLength {
		return customerForm{}, apperr.Validation(op, "customer_name", "name_too_short")
	}
	if !phone.Valid(f.phone) {
		return customerForm{}, apperr.Validation(op, "phone_number", "phone_invalid")
	}
	if f.invoice == "" {
		return customerForm{}, apperr.Validation(op, "invoice_number", "invoice_required")
	}
	return f, nil
}

// parseProductIDs parses and dedupes ids, keeping the first occurrence order.
func parseProductIDs(op string, raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, apperr.Validation(op, "product_ids", "products_required")
	}
	seen := make(map[uuid.UUID]struct{}, len(raw))
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, apperr.Validation(op, "product_ids", "invalid_id")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *WarrantyService) resolveProducts(ctx context.Context, op string, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, apperr.Validation(op, "product_ids", "product_not_found")
		}
	}
	return byID, nil
}

// WarrantyNumber builds "<invoice>-<product8>-<random8>".
func WarrantyNumber(invoice string, productID uuid.UUID) string {
	return invoice + "-" + productID.String()[:8] + "-" + uuid.NewString()[:8]
}

// Issue validates the certificate form and stores the customer with one
// warranty per selected product. A repeated request token returns the
// certificate stored by the first request.
func (s *WarrantyService) Issue(ctx context.Context, userID uuid.UUID, req models.IssueRequest) (models.IssueResult, error) {
	const op = "services.warranty.Issue"

	form, err := s.cleanForm(op, req.CustomerName, req.PhoneNumber, req.InvoiceNumber)
	if err != nil {
		return models.IssueResult{}, err
	}
	ids, err := parseProductIDs(op, req.ProductIDs)
	if err != nil {
		return models.IssueResult{}, err
	}
	if err := period.ValidateMonths(req.DurationMonths); err != nil {
		return models.IssueResult{}, err
	}

	token := strings.TrimSpace(req.RequestToken)
	if token != "" {
		if res, ok, err := s.replay(ctx, token); err != nil || ok {
			return res, err
		}
	}

	products, err := s.resolveProducts(ctx, op, ids)
	if err != nil {
		return models.IssueResult{}, err
	}

	start := s.today()
	if !req.StartDate.IsZero() {
		start = s.inLocation(req.StartDate.Time)
	}
	purchase := start
	if !req.PurchaseDate.IsZero() {
		purchase = s.inLocation(req.PurchaseDate.Time)
	}
	end, err := period.EndDate(start, req.DurationMonths)
	if err != nil {
		return models.IssueResult{}, err
	}

	notes := s.sanitizer.Text(req.Notes)
	items := make([]models.Warranty, 0, len(ids))
	for _, id := range ids {
		p := products[id]
		items = append(items, models.Warranty{
			ProductID:              id,
			WarrantyNumber:         WarrantyNumber(form.invoice, id),
			PurchaseDate:           purchase,
			WarrantyStartDate:      start,
			WarrantyEndDate:        end,
			WarrantyDurationMonths: req.DurationMonths,
			Notes:                  notes,
			Product:                &p,
		})
	}

	customer, created, err := s.repo.IssueCertificate(ctx, models.Customer{
		Name:          form.name,
		Phone:         form.phone,
		InvoiceNumber: form.invoice,
		RequestToken:  token,
	}, items, userID)
	if err != nil {
		// Two requests with the same token raced; the loser replays.
		if token != "" && apperr.Is(err, apperr.KindConflict) {
			if res, ok, rerr := s.replay(ctx, token); rerr == nil && ok {
				return res, nil
			}
		}
		return models.IssueResult{}, err
	}

	s.invalidate(ctx, cache.KeyWarranties)
	s.publish(ctx, events.New(events.Created, events.EntityCustomer, customer.ID).ForCustomer(customer.ID).By(userID))
	for _, w := range created {
		s.publish(ctx, events.New(events.Created, events.EntityWarranty, w.ID).ForCustomer(customer.ID).By(userID))
	}
	s.metrics.RecordCertificateIssued(len(created))

	s.log.Info("certificate issued",
		slog.String("customer_id", customer.ID.String()),
		slog.Int("warranties", len(created)))
	return models.IssueResult{Customer: customer, Warranties: s.localizeAll(created)}, nil
}

func (s *WarrantyService) replay(ctx context.Context, token string) (models.IssueResult, bool, error) {
	customer, err := s.repo.FindCustomerByRequestToken(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return models.IssueResult{}, false, nil
		}
		return models.IssueResult{}, false, err
	}
	items, err := s.repo.ListCustomerWarranties(ctx, customer.ID)
	if err != nil {
		return models.IssueResult{}, false, err
	}
	return models.IssueResult{Customer: customer, Warranties: s.localizeAll(items), Replayed: true}, true, nil
}

// Products returns the covered products, cached.
func (s *WarrantyService) Products(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	if found, err := s.cache.Get(ctx, cache.KeyProducts, &cached); err != nil {
		s.log.Warn("failed to get products from cache", sl.Err(err))
	} else if found {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.KeyProducts, products, s.ttl); err != nil {
		s.log.Warn("failed to cache products", sl.Err(err))
	}
	return products, nil
}

func (s *WarrantyService) loadWarranties(ctx context.Context) ([]models.Warranty, error) {
	var cached []models.Warranty
	if found, err := s.cache.Get(ctx, cache.KeyWarranties, &cached); err != nil {
		s.log.Warn("failed to get warranties from cache", sl.Err(err))
	} else if found {
		return s.localizeAll(cached), nil
	}

	items, err := s.repo.ListWarranties(ctx)
	if err != nil {
		return nil, err
	}
	s.localizeAll(items)
	if err := s.cache.Set(ctx, cache.KeyWarranties, items, s.ttl); err != nil {
		s.log.Warn("failed to cache warranties", sl.Err(err))
	}
	return items, nil
}

// List filters the stored warranties by c and groups them by customer.
// Products lists every product name present, regardless of c.
func (s *WarrantyService) List(ctx context.Context, c listing.Criteria) (ListResult, error) {
	items, err := s.loadWarranties(ctx)
	if err != nil {
		return ListResult{}, err
	}
	now := s.now().In(s.loc)
	filtered := listing.Filter(items, c, now)
	return ListResult{
		Groups:   listing.Group(filtered),
		Summary:  listing.Summarize(filtered, now),
		Products: listing.ProductNames(items),
		Total:    len(filtered),
	}, nil
}

// Search finds certificates by exact invoice number and/or phone number.
func (s *WarrantyService) Search(ctx context.Context, params models.SearchParams) ([]models.CustomerGroup, error) {
	const op = "services.warranty.Search"
	params.InvoiceNumber = strings.TrimSpace(params.InvoiceNumber)
	params.PhoneNumber = strings.TrimSpace(params.PhoneNumber)
	if params.Empty() {
		return nil, apperr.Validation(op, "invoice_number", "search_key_required")
	}

	items, err := s.repo.SearchWarranties(ctx, params)
	if err != nil {
		return nil, err
	}
	s.localizeAll(items)
	listing.Sort(items)
	return listing.Group(items), nil
}

// UpdateCustomer changes the customer fields present in p.
func (s *WarrantyService) UpdateCustomer(ctx context.Context, userID, id uuid.UUID, p models.CustomerPatch) (models.Customer, error) {
	const op = "services.warranty.UpdateCustomer"
	if p.Empty() {
		return models.Customer{}, apperr.Validation(op, "", "nothing_to_update")
	}
	if p.Name != nil {
		name := s.sanitizer.Text(*p.Name)
		if utf8.RuneCountInString(name) < MinNameLength {
			return models.Customer{}, apperr.Validation(op, "name", "name_too_short")
		}
		p.Name = &name
	}
	if p.Phone != nil {
		ph := strings.TrimSpace(*p.Phone)
		if !phone.Valid(ph) {
			return models.Customer{}, apperr.Validation(op, "phone", "phone_invalid")
		}
		p.Phone = &ph
	}
	if p.InvoiceNumber != nil {
		inv := s.sanitizer.Text(*p.InvoiceNumber)
		if inv == "" {
			return models.Customer{}, apperr.Validation(op, "invoice_number", "invoice_required")
		}
		p.InvoiceNumber = &inv
	}

	customer, err := s.repo.UpdateCustomer(ctx, id, p)
	if err != nil {
		return models.Customer{}, err
	}
	s.invalidate(ctx, cache.KeyWarranties)
	s.publish(ctx, events.New(events.Updated, events.EntityCustomer, customer.ID).ForCustomer(customer.ID).By(userID))
	return customer, nil
}

// UpdateWarranty changes one warranty. The end date is recomputed from the
// resulting start date and duration whenever either of them changes.
func (s *WarrantyService) UpdateWarranty(ctx context.Context, userID, id uuid.UUID, p models.WarrantyPatch) (models.Warranty, error) {
	const op = "services.warranty.UpdateWarranty"
	if p.Empty() {
		return models.Warranty{}, apperr.Validation(op, "", "nothing_to_update")
	}

	current, err := s.repo.GetWarranty(ctx, id)
	if err != nil {
		return models.Warranty{}, err
	}
	s.localize(&current)

	var change models.WarrantyChange
	start, months := current.WarrantyStartDate, current.WarrantyDurationMonths
	if p.WarrantyStartDate != nil {
		if p.WarrantyStartDate.IsZero() {
			return models.Warranty{}, apperr.Validation(op, "warranty_start_date", "invalid_date")
		}
		start = s.inLocation(p.WarrantyStartDate.Time)
		change.WarrantyStartDate = &start
	}
	if p.WarrantyDurationMonths != nil {
		months = *p.WarrantyDurationMonths
		if err := period.ValidateMonths(months); err != nil {
			return models.Warranty{}, err
		}
		change.WarrantyDurationMonths = &months
	}
	if change.WarrantyStartDate != nil || change.WarrantyDurationMonths != nil {
		end, err := period.EndDate(start, months)
		if err != nil {
			return models.Warranty{}, err
		}
		change.WarrantyEndDate = &end
	}
	if p.PurchaseDate != nil && !p.PurchaseDate.IsZero() {
		purchase := s.inLocation(p.PurchaseDate.Time)
		change.PurchaseDate = &purchase
	}
	if p.Notes != nil {
		notes := s.sanitizer.Text(*p.Notes)
		change.Notes = &notes
	}

	updated, err := s.repo.UpdateWarranty(ctx, id, change, userID)
	if err != nil {
		return models.Warranty{}, err
	}
	s.localize(&updated)
	s.invalidate(ctx, cache.KeyWarranties)
	s.publish(ctx, events.New(events.Updated, events.EntityWarranty, id).ForCustomer(current.CustomerID).By(userID))
	return updated, nil
}

// DeleteWarranty removes one warranty.
func (s *WarrantyService) DeleteWarranty(ctx context.Context, userID, id uuid.UUID) error {
	current, err := s.repo.GetWarranty(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteWarranty(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyWarranties)
	s.publish(ctx, events.New(events.Deleted, events.EntityWarranty, id).ForCustomer(current.CustomerID).By(userID))
	return nil
}

// DeleteCustomer removes a customer together with all of its warranties.
func (s *WarrantyService) DeleteCustomer(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.repo.DeleteCustomer(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyWarranties)
	for _, wid := range deleted {
		s.publish(ctx, events.New(events.Deleted, events.EntityWarranty, wid).ForCustomer(id).By(userID))
	}
	s.publish(ctx, events.New(events.Deleted, events.EntityCustomer, id).ForCustomer(id).By(userID))
	s.log.Info("customer deleted",
		slog.String("customer_id", id.String()),
		slog.Int("warranties", len(deleted)))
	return nil
}

// EditCertificate replaces a customer's certificate: the customer fields are
// overwritten, warranties of deselected products are deleted, kept
// warranties get the new duration counted from their own start date, and
// newly selected products get warranties starting today.
func (s *WarrantyService) EditCertificate(ctx context.Context, userID, customerID uuid.UUID, req models.EditRequest) (models.EditResult, error) {
	const op = "services.warranty.EditCertificate"

	form, err := s.cleanForm(op, req.CustomerName, req.PhoneNumber, req.InvoiceNumber)
	if err != nil {
		return models.EditResult{}, err
	}
	ids, err := parseProductIDs(op, req.ProductIDs)
	if err != nil {
		return models.EditResult{}, err
	}
	if err := period.ValidateMonths(req.DurationMonths); err != nil {
		return models.EditResult{}, err
	}

	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return models.EditResult{}, err
	}
	existing, err := s.repo.ListCustomerWarranties(ctx, customerID)
	if err != nil {
		return models.EditResult{}, err
	}
	s.localizeAll(existing)

	selected := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	have := make(map[uuid.UUID]struct{}, len(existing))

	edit := models.CertificateEdit{
		Customer: models.CustomerPatch{Name: &form.name, Phone: &form.phone, InvoiceNumber: &form.invoice},
	}
	result := models.EditResult{CustomerID: customerID}

	for _, w := range existing {
		have[w.ProductID] = struct{}{}
		if _, keep := selected[w.ProductID]; !keep {
			edit.Delete = append(edit.Delete, w.ID)
			result.Deleted = append(result.Deleted, w.ID)
			continue
		}
		end, err := period.Recompute(w.WarrantyStartDate, req.DurationMonths)
		if err != nil {
			return models.EditResult{}, err
		}
		if w.WarrantyDurationMonths == req.DurationMonths && w.WarrantyEndDate.Equal(end) {
			continue
		}
		edit.Extend = append(edit.Extend, models.WarrantyExtension{ID: w.ID, EndDate: end, DurationMonths: req.DurationMonths})
		result.Updated = append(result.Updated, w.ID)
	}

	var added []uuid.UUID
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			added = append(added, id)
		}
	}
	if len(added) > 0 {
		products, err := s.resolveProducts(ctx, op, added)
		if err != nil {
			return models.EditResult{}, err
		}
		start := s.today()
		end, err := period.EndDate(start, req.DurationMonths)
		if err != nil {
			return models.EditResult{}, err
		}
		var notes string
		if req.Notes != nil {
			notes = s.sanitizer.Text(*req.Notes)
		}
		for _, id := range added {
			p := products[id]
			edit.Create = append(edit.Create, models.Warranty{
				ProductID:              id,
				WarrantyNumber:         WarrantyNumber(form.invoice, id),
				PurchaseDate:           start,
				WarrantyStartDate:      start,
				WarrantyEndDate:        end,
				WarrantyDurationMonths: req.DurationMonths,
				Notes:                  notes,
				Product:                &p,
			})
		}
	}

	created, err := s.repo.ApplyCertificateEdit(ctx, customerID, edit, userID)
	if err != nil {
		return models.EditResult{}, err
	}
	for _, w := range created {
		result.Created = append(result.Created, w.ID)
	}

	s.invalidate(ctx, cache.KeyWarranties)
	s.publish(ctx, events.New(events.Updated, events.EntityCustomer, customerID).ForCustomer(customerID).By(userID))
	for _, id := range result.Deleted {
		s.publish(ctx, events.New(events.Deleted, events.EntityWarranty, id).ForCustomer(customerID).By(userID))
	}
	for _, id := range result.Updated {
		s.publish(ctx, events.New(events.Updated, events.EntityWarranty, id).ForCustomer(customerID).By(userID))
	}
	for _, id := range result.Created {
		s.publish(ctx, events.New(events.Created, events.EntityWarranty, id).ForCustomer(customerID).By(userID))
	}
	return result, nil
}

// Certificate assembles the printable certificate of a customer. The
// duration and end date are those of the latest ending warranty.
func (s *WarrantyService) Certificate(ctx context.Context, customerID uuid.UUID) (models.Certificate, error) {
	const op = "services.warranty.Certificate"

	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return models.Certificate{}, err
	}
	items, err := s.repo.ListCustomerWarranties(ctx, customerID)
	if err != nil {
		return models.Certificate{}, err
	}
	if len(items) == 0 {
		return models.Certificate{}, apperr.NotFound(op, "certificate_not_found")
	}
	s.localizeAll(items)

	cert := models.Certificate{
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		PhoneNumber:   customer.Phone,
		InvoiceNumber: customer.InvoiceNumber,
		IssuedAt:      customer.CreatedAt,
	}
	// Oldest first, so products keep the order they were added in.
	for i := len(items) - 1; i >= 0; i-- {
		w := items[i]
		if w.Product != nil {
			cert.Products = append(cert.Products, *w.Product)
		} else {
			cert.Products = append(cert.Products, models.Product{ID: w.ProductID})
		}
		cert.WarrantyNumbers = append(cert.WarrantyNumbers, w.WarrantyNumber)
		if cert.StartDate.IsZero() || w.WarrantyStartDate.Before(cert.StartDate) {
			cert.StartDate = w.WarrantyStartDate
		}
		if w.WarrantyEndDate.After(cert.EndDate) {
			cert.EndDate = w.WarrantyEndDate
			cert.DurationMonths = w.WarrantyDurationMonths
		}
	}
	return cert, nil
}

func (s *WarrantyService) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to invalidate cache", slog.Any("keys", keys), sl.Err(err))
	}
}

func (s *WarrantyService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("failed to publish event", slog.String("event", e.Name()), sl.Err(err))
	}
}
