package repositories

import (
	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/pkg/kvstore"
)

// Repositories holds all the repository instances
type Repositories struct {
	SubmissionRepository *SubmissionRepository
	UserRepository       *UserRepository
	SessionRepository    *SessionRepository
}

// NewRepositories initializes all repositories over one store
func NewRepositories(store kvstore.Store, logger zerolog.Logger) *Repositories {
	return &Repositories{
		SubmissionRepository: NewSubmissionRepository(store, logger),
		UserRepository:       NewUserRepository(store, logger),
		SessionRepository:    NewSessionRepository(store, logger),
	}
}
