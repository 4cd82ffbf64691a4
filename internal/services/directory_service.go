package services

import (
	"time"

	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
)

// Directory reads the user directory; the workflow engine never writes
// it. Implements DirectoryService.
type Directory struct {
	repo *repositories.UserRepository
}

func NewDirectory(repo *repositories.UserRepository) *Directory {
	return &Directory{repo: repo}
}

func (s *Directory) ListActiveUsers() ([]*models.User, error) {
	return s.repo.ListActive()
}

func (s *Directory) GetUserByID(id string) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *Directory) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(email)
}

func (s *Directory) GetByRefreshToken(token string) (*models.User, error) {
	return s.repo.GetByRefreshToken(token)
}

func (s *Directory) UpdateRefresh(id string, token *string, expiresAt *time.Time) error {
	return s.repo.UpdateRefresh(id, token, expiresAt)
}
