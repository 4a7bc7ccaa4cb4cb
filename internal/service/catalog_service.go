package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dkravtsov/marketplace-backend/internal/models"
	"github.com/dkravtsov/marketplace-backend/internal/pkg/apperror"
)

// CatalogRepository описывает хранилище каталога услуг.
type CatalogRepository interface {
	Create(ctx context.Context, svc *models.Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	List(ctx context.Context, limit, offset int) ([]models.Service, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Service, error)
}

// CatalogService управляет каталогом услуг исполнителей.
type CatalogService struct {
	services CatalogRepository
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(services CatalogRepository) *CatalogService {
	return &CatalogService{services: services}
}

// CreateService публикует услугу исполнителя.
func (s *CatalogService) CreateService(ctx context.Context, providerID uuid.UUID, title, description string, price float64) (*models.Service, error) {
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название услуги обязательно")
	}
	if price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена услуги должна быть положительной")
	}

	svc := &models.Service{
		ProviderID:  providerID,
		Title:       title,
		Description: description,
		Price:       price,
		IsActive:    true,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// GetService возвращает услугу по идентификатору.
func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrServiceNotFound
	}
	return svc, nil
}

// ListServices возвращает активные услуги каталога.
func (s *CatalogService) ListServices(ctx context.Context, limit, offset int) ([]models.Service, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.services.List(ctx, limit, offset)
}

// ListMyServices возвращает услуги исполнителя.
func (s *CatalogService) ListMyServices(ctx context.Context, providerID uuid.UUID) ([]models.Service, error) {
	return s.services.ListByProvider(ctx, providerID)
}
