package repositories

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/kvstore"
)

// UserRepository stores credential records
type UserRepository struct {
	list *jsonList[models.Credential]
	mu   sync.Mutex
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(store kvstore.Store, logger zerolog.Logger) *UserRepository {
	return &UserRepository{
		list: newJSONList[models.Credential](store, UsersKey, logger),
	}
}

// Create appends a credential. The email must be lower-cased by the caller.
func (r *UserRepository) Create(ctx context.Context, cred *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return err
	}
	for _, c := range snap.items {
		if models.NormalizeEmail(c.Email) == models.NormalizeEmail(cred.Email) {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	return r.list.save(ctx, snap, append(snap.items, *cred))
}

// GetByEmail looks a credential up by case-folded email; nil when absent
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.find(ctx, func(c *models.Credential) bool {
		return models.NormalizeEmail(c.Email) == models.NormalizeEmail(email)
	})
}

// GetByID looks a credential up by user id; nil when absent
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	return r.find(ctx, func(c *models.Credential) bool { return c.ID == id })
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	c, err := r.GetByEmail(ctx, email)
	return c != nil, err
}

func (r *UserRepository) find(ctx context.Context, match func(*models.Credential) bool) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.list.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.items {
		if match(&snap.items[i]) {
			c := snap.items[i]
			return &c, nil
		}
	}
	return nil, nil
}
