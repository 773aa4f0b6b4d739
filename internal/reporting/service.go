package reporting

import (
	"context"
	"errors"
	"time"

	"credit-store/internal/orders"
	"credit-store/internal/wallet"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Implementations
// query immutable sources: the wallet ledger and the order log.
type Repository interface {
	ListTopups(ctx context.Context, from, to time.Time) ([]wallet.LedgerEntry, error)
	ListOrders(ctx context.Context, from, to time.Time) ([]orders.Order, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Summarize aggregates top-up and order activity over a time range.
func (s *Service) Summarize(ctx context.Context, r TimeRange) (Summary, error) {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return Summary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Summary{}, errors.New("reporting: repository not configured")
	}

	out := Summary{Range: r}

	topups, err := s.repo.ListTopups(ctx, r.From, r.To)
	if err != nil {
		return Summary{}, err
	}
	for _, e := range topups {
		switch e.Status {
		case wallet.StatusPending:
			out.Topups.PendingCount++
		case wallet.StatusApproved:
			out.Topups.ApprovedCount++
			out.Topups.ApprovedTotal = out.Topups.ApprovedTotal.Add(e.Amount)
		case wallet.StatusRejected:
			out.Topups.RejectedCount++
		}
	}

	orderRows, err := s.repo.ListOrders(ctx, r.From, r.To)
	if err != nil {
		return Summary{}, err
	}
	for _, o := range orderRows {
		switch o.Status {
		case orders.StatusCreated:
			out.Orders.CreatedCount++
		case orders.StatusSent:
			out.Orders.SentCount++
			out.Orders.Revenue = out.Orders.Revenue.Add(o.TotalPrice)
		case orders.StatusCompleted:
			out.Orders.CompletedCount++
			out.Orders.Revenue = out.Orders.Revenue.Add(o.TotalPrice)
		case orders.StatusFailed:
			out.Orders.FailedCount++
		}
	}

	return out, nil
}
