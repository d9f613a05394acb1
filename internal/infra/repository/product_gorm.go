package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var rec productRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return model.Product{}, notFound(err)
	}
	return rec.toModel(), nil
}

// 商品一覧（新しい順）
func (r *ProductGormRepository) List(ctx context.Context, f repo.ProductListFilter) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Model(&productRecord{})

	//category 絞り込み
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	q = q.Order("created_at desc").Order("id desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset())
	}

	var recs []productRecord
	if err := q.Find(&recs).Error; err != nil {
		return []model.Product{}, err
	}

	out := make([]model.Product, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// 商品削除
func (r *ProductGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&productRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品の作成・上書き
func (r *ProductGormRepository) Upsert(ctx context.Context, p model.Product) error {
	rec := toProductRecord(p)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "image", "category", "in_stock", "updated_at"}),
		}).
		Create(&rec).Error
}
