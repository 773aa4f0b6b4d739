package convo

import (
	"context"
	"time"
)

type Service struct {
	store Store

	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// Apply advances a user's conversation by one event, merging the
// event's data into the session's data bag. Cancel resets both the
// state and the bag.
func (s *Service) Apply(ctx context.Context, tgID int64, ev Event, data map[string]string) (Session, error) {
	sess, err := s.store.Get(ctx, tgID)
	if err != nil {
		return Session{}, err
	}

	next, err := Next(sess.State, ev)
	if err != nil {
		return sess, err
	}

	if ev == EventCancel {
		if err := s.store.Delete(ctx, tgID); err != nil {
			return Session{}, err
		}
		return Session{TgID: tgID, State: StateIdle, UpdatedAt: s.clock().UTC()}, nil
	}

	if sess.Data == nil {
		sess.Data = make(map[string]string)
	}
	for k, v := range data {
		sess.Data[k] = v
	}
	sess.State = next
	sess.UpdatedAt = s.clock().UTC()

	if err := s.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Current returns the user's session without changing it.
func (s *Service) Current(ctx context.Context, tgID int64) (Session, error) {
	return s.store.Get(ctx, tgID)
}
