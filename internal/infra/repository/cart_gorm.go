package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

var _ repo.CartRepository = (*CartGormRepository)(nil)

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	var rec cartRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return model.Cart{}, notFound(err)
	}
	return rec.toModel()
}

// version 付き UPDATE で楽観ロック。0件更新なら誰かが先に書いている。
func (r *CartGormRepository) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	cart.Version = expectedVersion + 1
	rec, err := toCartRecord(cart)
	if err != nil {
		return model.Cart{}, err
	}

	//新規作成（同時に作られたら重複キーで負ける）
	if expectedVersion == 0 {
		if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return model.Cart{}, repo.ErrConflict
			}
			return model.Cart{}, err
		}
		return cart.Clone(), nil
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Model(&cartRecord{}).
		Where("user_id = ? AND version = ?", cart.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"items":      rec.Items,
			"total":      rec.Total,
			"item_count": rec.ItemCount,
			"version":    rec.Version,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return model.Cart{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Cart{}, repo.ErrConflict
	}
	return cart.Clone(), nil
}

func (r *CartGormRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cartRecord{}).Error
}
