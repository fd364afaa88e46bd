package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/pkg/kvstore"
)

// SessionRepository stores issued sessions. Expired sessions are dropped
// whenever a new one is written.
type SessionRepository struct {
	list *jsonList[models.Session]
	mu   sync.Mutex
	now  func() time.Time
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(store kvstore.Store, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		list: newJSONList[models.Session](store, SessionsKey, logger),
		now:  time.Now,
	}
}

// WithClock replaces the clock used for expiry checks
func (r *SessionRepository) WithClock(now func() time.Time) *SessionRepository {
	r.now = now
	return r
}

// Create stores a session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return err
	}

	now := r.now()
	kept := make([]models.Session, 0, len(snap.items)+1)
	for _, s := range snap.items {
		if now.Before(s.ExpiresAt) {
			kept = append(kept, s)
		}
	}
	return r.list.save(ctx, snap, append(kept, *session))
}

// GetByID returns an unexpired session, or nil
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return nil, err
	}
	now := r.now()
	for i := range snap.items {
		if snap.items[i].ID == id && now.Before(snap.items[i].ExpiresAt) {
			s := snap.items[i]
			return &s, nil
		}
	}
	return nil, nil
}

// Delete removes one session. Other sessions of the same user are kept.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]models.Session, 0, len(snap.items))
	for _, s := range snap.items {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(snap.items) {
		return nil
	}
	return r.list.save(ctx, snap, kept)
}
