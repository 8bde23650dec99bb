package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/everkeep/backend/internal/model"
)

// CommunityFilter selects statements relevant to a viewer's surroundings:
// same geo bucket (prefix match), same country, or a followed memorial.
type CommunityFilter struct {
	GeoBucketPrefix string
	Country         string
	MemorialIDs     []string
}

// PersonalFilter selects statements addressed to or caused by one user.
type PersonalFilter struct {
	UserID      string
	MemorialIDs []string
}

type StatementRepository interface {
	Create(ctx context.Context, st *model.ActivityStatement) error
	GetByID(ctx context.Context, id string) (*model.ActivityStatement, error)
	ListCommunity(ctx context.Context, f CommunityFilter, cursor string, limit int) ([]*model.ActivityStatement, error)
	ListPersonal(ctx context.Context, f PersonalFilter, cursor string, limit int) ([]*model.ActivityStatement, error)
}

type statementRepository struct{ db *gorm.DB }

func NewStatementRepository(db *gorm.DB) StatementRepository { return &statementRepository{db: db} }

func (r *statementRepository) Create(ctx context.Context, st *model.ActivityStatement) error {
	return r.db.WithContext(ctx).Create(st).Error
}

func (r *statementRepository) GetByID(ctx context.Context, id string) (*model.ActivityStatement, error) {
	var st model.ActivityStatement
	err := r.db.WithContext(ctx).First(&st, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *statementRepository) ListCommunity(ctx context.Context, f CommunityFilter, cursor string, limit int) ([]*model.ActivityStatement, error) {
	or := r.db.Where("1 = 0")
	if f.GeoBucketPrefix != "" {
		or = or.Or("geo_bucket LIKE ?", f.GeoBucketPrefix+"%")
	}
	if f.Country != "" {
		or = or.Or("country = ?", f.Country)
	}
	if len(f.MemorialIDs) > 0 {
		or = or.Or("memorial_id IN ?", f.MemorialIDs)
	}
	return r.list(ctx, or, cursor, limit)
}

func (r *statementRepository) ListPersonal(ctx context.Context, f PersonalFilter, cursor string, limit int) ([]*model.ActivityStatement, error) {
	// Explicit audience membership is stored as a JSON array, matched by substring
	// on the quoted id. Coarse but index-free and portable across the stores in use.
	or := r.db.Where("audience_user_ids LIKE ?", `%"`+f.UserID+`"%`).
		Or("actor_user_id = ?", f.UserID)
	if len(f.MemorialIDs) > 0 {
		or = or.Or("memorial_id IN ?", f.MemorialIDs)
	}
	return r.list(ctx, or, cursor, limit)
}

// list applies the shared ordering and keyset pagination. Ordering is
// created_at DESC, id DESC; the id tiebreaker keeps cursors unambiguous for
// same-timestamp writes. An unknown cursor starts from the beginning.
func (r *statementRepository) list(ctx context.Context, or *gorm.DB, cursor string, limit int) ([]*model.ActivityStatement, error) {
	q := r.db.WithContext(ctx).Where(or)
	if cursor != "" {
		var pivot model.ActivityStatement
		err := r.db.WithContext(ctx).Select("id", "created_at").First(&pivot, "id = ?", cursor).Error
		if err == nil {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", pivot.CreatedAt, pivot.CreatedAt, pivot.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	var res []*model.ActivityStatement
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&res).Error
	return res, err
}
