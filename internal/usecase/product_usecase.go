package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

// numeric(14,2) の上限
var maxPrice = decimal.New(1, 12)

// ProductUsecase は商品カタログの参照と管理者による登録。
type ProductUsecase struct {
	products repo.ProductRepository
	clock    Clock
}

// DI
func NewProductUsecase(products repo.ProductRepository, clock Clock) *ProductUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ProductUsecase{products: products, clock: clock}
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID string) (model.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return model.Product{}, NewAppError(KindInvalidInput, "invalid product id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errProductNotFound
	}
	if err != nil {
		return model.Product{}, storeUnavailable(err)
	}
	return p, nil
}

type ListProductsInput struct {
	Category string
	Page     int
	Limit    int
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ListProducts は新しい順の商品一覧（page 既定 1、limit 既定 20・最大 100）。
func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 20
	}
	if in.Page < 1 {
		return ProductListOutput{}, NewAppError(KindInvalidInput, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewAppError(KindInvalidInput, "invalid limit")
	}

	items, err := u.products.List(ctx, repo.ProductListFilter{
		Category: strings.TrimSpace(in.Category),
		Page:     in.Page,
		Limit:    in.Limit,
	})
	if err != nil {
		return ProductListOutput{}, storeUnavailable(err)
	}
	return ProductListOutput{Items: items, Page: in.Page, Limit: in.Limit}, nil
}

type UpsertProductInput struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	InStock     bool
}

// AdminUpsertProduct は商品を作成または上書きする。
// 既にカートに入っている行の単価は変わらない。
func (u *ProductUsecase) AdminUpsertProduct(ctx context.Context, actor model.Actor, in UpsertProductInput) (model.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Product{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return model.Product{}, NewAppError(KindInvalidInput, "invalid product id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, NewAppError(KindInvalidInput, "name required")
	}
	if in.Price.IsNegative() {
		return model.Product{}, NewAppError(KindInvalidInput, "price must be >= 0")
	}
	// numeric(14,2) に揃える。"1.50" は可、"1.005" は不可
	if !in.Price.Equal(in.Price.Round(2)) {
		return model.Product{}, NewAppError(KindInvalidInput, "price must have at most 2 decimal places")
	}
	if in.Price.GreaterThanOrEqual(maxPrice) {
		return model.Product{}, NewAppError(KindInvalidInput, "price too large")
	}

	now := u.clock.Now()
	created := now
	existing, err := u.products.FindByID(ctx, id)
	switch {
	case err == nil:
		created = existing.CreatedAt
	case errors.Is(err, repo.ErrNotFound):
	default:
		return model.Product{}, storeUnavailable(err)
	}

	p := model.Product{
		ID:          id,
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		Category:    strings.TrimSpace(in.Category),
		InStock:     in.InStock,
		CreatedAt:   created,
		UpdatedAt:   now,
	}
	if err := u.products.Upsert(ctx, p); err != nil {
		return model.Product{}, storeUnavailable(err)
	}
	return p, nil
}

// AdminDeleteProduct は商品を消す。カートに入っている行は単価ごと残る。
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, actor model.Actor, productID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return NewAppError(KindInvalidInput, "invalid product id")
	}

	err := u.products.Delete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return errProductNotFound
	}
	if err != nil {
		return storeUnavailable(err)
	}
	return nil
}
