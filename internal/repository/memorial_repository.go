package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/everkeep/backend/internal/model"
)

type MemorialRepository interface {
	Create(ctx context.Context, m *model.Memorial) error
	GetByID(ctx context.Context, id string) (*model.Memorial, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.Memorial, error)
}

type memorialRepository struct{ db *gorm.DB }

func NewMemorialRepository(db *gorm.DB) MemorialRepository { return &memorialRepository{db: db} }

func (r *memorialRepository) Create(ctx context.Context, m *model.Memorial) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memorialRepository) GetByID(ctx context.Context, id string) (*model.Memorial, error) {
	var m model.Memorial
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memorialRepository) ListByIDs(ctx context.Context, ids []string) ([]*model.Memorial, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.Memorial
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}
