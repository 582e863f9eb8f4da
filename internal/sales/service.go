package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osanhueza/minimarket-backend/pkg/db/models"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
)

// Service exposes read and administrative operations on recorded sales. Sale
// rows are written once at checkout; only the status column moves afterwards.
type Service interface {
	Get(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	ListRecent(ctx context.Context, limit int) ([]models.Sale, error)
	UpdateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) error
}

type service struct {
	repo Repository
}

// NewService wires the sales dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale")
	}
	return sale, nil
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]models.Sale, error) {
	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales")
	}
	return rows, nil
}

func (s *service) UpdateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) error {
	if saleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sale status %q", status))
	}

	rows, err := s.repo.UpdateStatus(ctx, saleID, status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale status")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return nil
}
