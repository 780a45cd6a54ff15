package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/warranty-service/internal/lib/period"
	"github.com/magabrotheeeer/warranty-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/metrics"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// DefaultInterval is how often expiring warranties are looked up.
const DefaultInterval = 12 * time.Hour

// WarrantyRepository finds warranties by end date.
type WarrantyRepository interface {
	ListExpiringWarranties(ctx context.Context, from, to time.Time) ([]models.Warranty, error)
}

type SchedulerService struct {
	repo     WarrantyRepository
	metrics  metrics.Recorder
	log      *slog.Logger
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
}

// NewSchedulerService creates a SchedulerService. A zero
// interval means DefaultInterval and a nil loc means UTC.
func NewSchedulerService(repo WarrantyRepository, rec metrics.Recorder, log *slog.Logger, interval time.Duration, loc *time.Location) *SchedulerService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SchedulerService{
		repo:     repo,
		metrics:  rec,
		log:      log,
		interval: interval,
		loc:      loc,
		now:      time.Now,
	}
}

// NotifyExpiring publishes expiry notices once right away and then on every
// tick until ctx is cancelled.
func (s *SchedulerService) NotifyExpiring(ctx context.Context, channel rabbitmq.Channel) {
	s.runNotifyExpiring(ctx, channel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runNotifyExpiring(ctx, channel)
		}
	}
}

func (s *SchedulerService) runNotifyExpiring(ctx context.Context, channel rabbitmq.Channel) int {
	s.log.Info("starting search for expiring warranties")
	now := s.now().In(s.loc)
	items, err := s.repo.ListExpiringWarranties(ctx, now, now.Add(period.ExpiringSoonWindow))
	if err != nil {
		s.log.Error("failed to find expiring warranties", sl.Err(err))
		return 0
	}
	if len(items) == 0 {
		s.log.Info("no expiring warranties found")
		return 0
	}

	notices := GroupNotices(now, items)
	s.log.Info("found expiring warranties", slog.Int("warranties", len(items)), slog.Int("customers", len(notices)))

	published := 0
	for _, notice := range notices {
		err = rabbitmq.PublishMessage(channel, rabbitmq.NotificationsExchange, rabbitmq.RoutingKeyExpiring, notice)
		if err != nil {
			s.log.Error("failed to publish message", slog.String("customer_id", notice.CustomerID.String()), sl.Err(err))
			continue
		}
		published++
	}
	s.metrics.RecordExpiryNotices(published)
	return published
}

// GroupNotices builds one notice per customer, in the order customers first
// appear in items. End dates are reported in the location of now.
func GroupNotices(now time.Time, items []models.Warranty) []models.ExpiryNotice {
	index := make(map[uuid.UUID]int)
	var notices []models.ExpiryNotice

	for _, w := range items {
		w.WarrantyEndDate = w.WarrantyEndDate.In(now.Location())
		i, ok := index[w.CustomerID]
		if !ok {
			n := models.ExpiryNotice{CustomerID: w.CustomerID, EarliestEnd: w.WarrantyEndDate}
			if w.Customer != nil {
				n.CustomerName = w.Customer.Name
				n.PhoneNumber = w.Customer.Phone
				n.InvoiceNumber = w.Customer.InvoiceNumber
			}
			notices = append(notices, n)
			i = len(notices) - 1
			index[w.CustomerID] = i
		}

		n := &notices[i]
		if w.Product != nil {
			n.Products = append(n.Products, w.Product.Name)
		}
		if w.WarrantyEndDate.Before(n.EarliestEnd) {
			n.EarliestEnd = w.WarrantyEndDate
		}
	}

	for i := range notices {
		notices[i].DaysLeft = period.DaysLeft(now, notices[i].EarliestEnd)
	}
	return notices
}
