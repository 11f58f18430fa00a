package users

import (
	"context"

	"github.com/medpoint/authsvc/internal/server/models"
)

// Repository is the user store consumed by the authentication service.
// Lookups return common.ErrorNotFound when no record matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
