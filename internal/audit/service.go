package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Callers should treat audit logging as best-effort: an audit failure
// never unwinds the action it describes.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogEntryAction records an approve/reject of a ledger entry.
func (s *Service) LogEntryAction(ctx context.Context, t EventType, actorID, actorRole, ip, entryID, message string) error {
	return s.Append(ctx, Event{
		Type:         t,
		ActorAdminID: actorID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		EntryID:      entryID,
		Message:      message,
	})
}

// LogWalletAdjust records a manual balance adjustment.
func (s *Service) LogWalletAdjust(ctx context.Context, actorID, actorRole, ip, walletID, entryID, message string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeWalletAdjust,
		ActorAdminID: actorID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		WalletID:     walletID,
		EntryID:      entryID,
		Message:      message,
	})
}

// LogUserUpdate records tier changes and block/unblock actions.
func (s *Service) LogUserUpdate(ctx context.Context, actorID, actorRole, ip, userID, message string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeUserUpdated,
		ActorAdminID: actorID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		UserID:       userID,
		Message:      message,
	})
}
