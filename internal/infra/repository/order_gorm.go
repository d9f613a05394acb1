package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

var _ repo.OrderRepository = (*OrderGormRepository)(nil)

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var rec orderRecord
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&rec).Error; err != nil {
		return model.Order{}, notFound(err)
	}
	return rec.toModel()
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	o, err := rec.toModel()
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	q := r.db.WithContext(ctx).Model(&orderRecord{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	//user_id 絞り込み
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}

	q = q.Order("created_at desc").Order("id desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset())
	}

	var recs []orderRecord
	if err := q.Find(&recs).Error; err != nil {
		return []model.Order{}, err
	}

	out := make([]model.Order, 0, len(recs))
	for _, rec := range recs {
		o, err := rec.toModel()
		if err != nil {
			return []model.Order{}, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) error {
	rec, err := toOrderRecord(order)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status = ?", orderID, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": updatedAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// 0件なら「無い」のか「先に変えられた」のかを見分ける
	var n int64
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", orderID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrConflict
}
