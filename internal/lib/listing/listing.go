// Package listing derives the certificate list view from a loaded set of
// warranties: free-text search, status, creation date and product filters,
// grouping by customer and status totals. It performs no I/O.
package listing

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/lib/period"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// All is the neutral value of every filter.
const All = "all"

// DateRange limits results by warranty creation time.
type DateRange string

// Supported date ranges.
const (
	RangeAll   DateRange = All
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

var rangeSpan = map[DateRange]time.Duration{
	RangeWeek:  7 * 24 * time.Hour,
	RangeMonth: 30 * 24 * time.Hour,
	RangeYear:  365 * 24 * time.Hour,
}

// Criteria are the list filters. Zero values mean "all".
type Criteria struct {
	Search    string    `json:"search,omitempty"`
	Status    string    `json:"status,omitempty"`
	DateRange DateRange `json:"date,omitempty"`
	Product   string    `json:"product,omitempty"`
}

// ParseCriteria builds criteria from raw query values and rejects unknown
// status or date range names.
func ParseCriteria(search, status, dateRange, product string) (Criteria, error) {
	const op = "listing.ParseCriteria"
	c := Criteria{
		Search:    strings.TrimSpace(search),
		Status:    strings.TrimSpace(status),
		DateRange: DateRange(strings.TrimSpace(dateRange)),
		Product:   strings.TrimSpace(product),
	}.Normalize()

	if c.Status != All && !period.Status(c.Status).Valid() {
		return Criteria{}, apperr.Validation(op, "status", "invalid_filter")
	}
	switch c.DateRange {
	case RangeAll, RangeToday, RangeWeek, RangeMonth, RangeYear:
	default:
		return Criteria{}, apperr.Validation(op, "date", "invalid_filter")
	}
	return c, nil
}

// Normalize replaces empty filters with All.
func (c Criteria) Normalize() Criteria {
	if c.Status == "" {
		c.Status = All
	}
	if c.DateRange == "" {
		c.DateRange = RangeAll
	}
	if c.Product == "" {
		c.Product = All
	}
	return c
}

// IsDefault reports whether the criteria select everything.
func (c Criteria) IsDefault() bool {
	n := c.Normalize()
	return n.Search == "" && n.Status == All && n.DateRange == RangeAll && n.Product == All
}

// Predicate selects a warranty.
type Predicate func(w models.Warranty) bool

var phoneLike = regexp.MustCompile(`^[\+\d\s\-\(\)]+$`)

// SearchPredicate matches term case-insensitively against the customer name,
// invoice number and product name, and as a raw substring of the phone.
// A term made only of phone characters is also compared digits to digits.
func SearchPredicate(term string) Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	fold := cases.Fold()
	needle := fold.String(term)
	digits := ""
	if phoneLike.MatchString(term) {
		digits = onlyDigits(term)
	}

	return func(w models.Warranty) bool {
		var name, invoice, phone, product string
		if w.Customer != nil {
			name, invoice, phone = w.Customer.Name, w.Customer.InvoiceNumber, w.Customer.Phone
		}
		if w.Product != nil {
			product = w.Product.Name
		}
		switch {
		case strings.Contains(fold.String(name), needle),
			strings.Contains(fold.String(invoice), needle),
			strings.Contains(fold.String(product), needle),
			strings.Contains(phone, term):
			return true
		case digits != "":
			return strings.Contains(onlyDigits(phone), digits)
		}
		return false
	}
}

// StatusPredicate keeps warranties whose status at now equals status.
func StatusPredicate(status string, now time.Time) Predicate {
	if status == "" || status == All {
		return nil
	}
	want := period.Status(status)
	return func(w models.Warranty) bool {
		return period.Classify(now, w.WarrantyEndDate) == want
	}
}

// DatePredicate keeps warranties created inside r. Today means the same
// calendar day as now in now's location; the other ranges have an inclusive
// lower bound of now minus 7, 30 or 365 days.
func DatePredicate(r DateRange, now time.Time) Predicate {
	switch r {
	case "", RangeAll:
		return nil
	case RangeToday:
		today := period.StartOfDay(now)
		return func(w models.Warranty) bool {
			return period.StartOfDay(w.CreatedAt.In(now.Location())).Equal(today)
		}
	}
	span, ok := rangeSpan[r]
	if !ok {
		return func(models.Warranty) bool { return false }
	}
	from := now.Add(-span)
	return func(w models.Warranty) bool {
		return !w.CreatedAt.Before(from)
	}
}

// ProductPredicate keeps warranties for the product with exactly this name.
func ProductPredicate(name string) Predicate {
	if name == "" || name == All {
		return nil
	}
	return func(w models.Warranty) bool {
		return w.Product != nil && w.Product.Name == name
	}
}

// Predicates returns the active predicates for c. now is captured once so
// every row of a pass is classified against the same instant.
func Predicates(c Criteria, now time.Time) []Predicate {
	c = c.Normalize()
	var out []Predicate
	for _, p := range []Predicate{
		SearchPredicate(c.Search),
		StatusPredicate(c.Status, now),
		DatePredicate(c.DateRange, now),
		ProductPredicate(c.Product),
	} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Apply keeps the items matching every predicate, in input order.
func Apply(items []models.Warranty, preds ...Predicate) []models.Warranty {
	out := make([]models.Warranty, 0, len(items))
next:
	for _, w := range items {
		for _, p := range preds {
			if p != nil && !p(w) {
				continue next
			}
		}
		out = append(out, w)
	}
	return out
}

// Filter applies c to items and returns the matches newest first.
func Filter(items []models.Warranty, c Criteria, now time.Time) []models.Warranty {
	out := Apply(items, Predicates(c, now)...)
	Sort(out)
	return out
}

// Sort orders warranties by creation time descending, then by id.
func Sort(items []models.Warranty) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Group collects items by customer. Warranties keep their relative order and
// groups are ordered by their newest warranty, then by customer id.
func Group(items []models.Warranty) []models.CustomerGroup {
	type acc struct {
		group  models.CustomerGroup
		newest time.Time
	}
	byID := make(map[string]*acc)
	var order []string

	for _, w := range items {
		key := w.CustomerID.String()
		a, ok := byID[key]
		if !ok {
			customer := models.Customer{ID: w.CustomerID}
			if w.Customer != nil {
				customer = *w.Customer
			}
			a = &acc{group: models.CustomerGroup{Customer: customer}}
			byID[key] = a
			order = append(order, key)
		}
		a.group.Warranties = append(a.group.Warranties, w)
		if w.WarrantyEndDate.After(a.group.LatestExpiry) {
			a.group.LatestExpiry = w.WarrantyEndDate
		}
		if w.CreatedAt.After(a.newest) {
			a.newest = w.CreatedAt
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := byID[order[i]], byID[order[j]]
		if !a.newest.Equal(b.newest) {
			return a.newest.After(b.newest)
		}
		return order[i] < order[j]
	})

	out := make([]models.CustomerGroup, 0, len(order))
	for _, key := range order {
		out = append(out, byID[key].group)
	}
	return out
}

// ProductNames returns the distinct product names present in items, sorted.
func ProductNames(items []models.Warranty) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range items {
		if w.Product == nil || w.Product.Name == "" {
			continue
		}
		if _, ok := seen[w.Product.Name]; ok {
			continue
		}
		seen[w.Product.Name] = struct{}{}
		out = append(out, w.Product.Name)
	}
	sort.Strings(out)
	return out
}

// Summary counts warranties per status.
type Summary struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
	Customers    int `json:"customers"`
}

// Summarize counts items by status at now.
func Summarize(items []models.Warranty, now time.Time) Summary {
	s := Summary{Total: len(items)}
	customers := make(map[string]struct{})
	for _, w := range items {
		customers[w.CustomerID.String()] = struct{}{}
		switch period.Classify(now, w.WarrantyEndDate) {
		case period.StatusActive:
			s.Active++
		case period.StatusExpiringSoon:
			s.ExpiringSoon++
		case period.StatusExpired:
			s.Expired++
		}
	}
	s.Customers = len(customers)
	return s
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
