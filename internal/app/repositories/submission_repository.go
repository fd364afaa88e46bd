package repositories

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/pkg/kvstore"
)

// SubmissionRepository stores submissions as one list. Expired rows stay
// in storage but are never returned.
type SubmissionRepository struct {
	list *jsonList[models.Submission]
	mu   sync.Mutex
	now  func() time.Time
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(store kvstore.Store, logger zerolog.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		list: newJSONList[models.Submission](store, SubmissionsKey, logger),
		now:  time.Now,
	}
}

// WithClock replaces the clock used for expiry filtering
func (r *SubmissionRepository) WithClock(now func() time.Time) *SubmissionRepository {
	r.now = now
	return r
}

// Create appends a submission. Identifiers are not checked for uniqueness.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return err
	}
	return r.list.save(ctx, snap, append(snap.items, *submission))
}

// List returns active submissions, narrowed to one owner when ownerID is not empty
func (r *SubmissionRepository) List(ctx context.Context, ownerID string) ([]*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	result := make([]*models.Submission, 0, len(snap.items))
	for i := range snap.items {
		s := snap.items[i]
		if !s.IsActive(now) {
			continue
		}
		if ownerID != "" && s.StudentID != ownerID {
			continue
		}
		result = append(result, &s)
	}
	return result, nil
}

// GetByID returns the active submission with id, or nil when there is none
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := r.indexActive(snap.items, id); i >= 0 {
		s := snap.items[i]
		return &s, nil
	}
	return nil, nil
}

// Update merges the set fields of upd into the active submission with id.
// When no such submission exists nothing is written and false is returned.
func (r *SubmissionRepository) Update(ctx context.Context, id string, upd models.SubmissionUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return false, err
	}
	i := r.indexActive(snap.items, id)
	if i < 0 {
		return false, nil
	}

	upd.Apply(&snap.items[i])
	if err := r.list.save(ctx, snap, snap.items); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes every stored row with id, expired or not. Deleting a missing id is a no-op.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return err
	}

	kept := snap.items[:0]
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

// VerifyEditCode reports whether an active submission with id has exactly this edit code
func (r *SubmissionRepository) VerifyEditCode(ctx context.Context, id, code string) (bool, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil || s == nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(s.EditCode), []byte(code)) == 1, nil
}

func (r *SubmissionRepository) indexActive(items []models.Submission, id string) int {
	now := r.now()
	for i := range items {
		if items[i].ID == id && items[i].IsActive(now) {
			return i
		}
	}
	return -1
}
