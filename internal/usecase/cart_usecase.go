package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

// CartUsecase はカートの業務ロジックです。
// 書き込みはすべて version 付きの read-modify-write で、競合したら読み直してやり直す。
type CartUsecase struct {
	carts    repo.CartRepository
	products repo.ProductRepository
	cache    CartCache
	clock    Clock
	retry    RetryPolicy
	log      *slog.Logger

	sfg singleflight.Group
}

// DI（cache / logger は nil 可）
func NewCartUsecase(
	carts repo.CartRepository,
	products repo.ProductRepository,
	cache CartCache,
	clock Clock,
	retry RetryPolicy,
	logger *slog.Logger,
) *CartUsecase {
	if cache == nil {
		cache = nopCartCache{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CartUsecase{
		carts:    carts,
		products: products,
		cache:    cache,
		clock:    clock,
		retry:    retry,
		log:      logger,
	}
}

// AddProduct は商品カタログを引いてからカートに追加する。
func (u *CartUsecase) AddProduct(ctx context.Context, userID, productID string, quantity int64) (model.Cart, error) {
	if userID == "" {
		return model.Cart{}, errNotAuthenticated
	}
	if quantity < 1 || quantity > model.MaxItemQuantity {
		return model.Cart{}, errInvalidQuantity
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return model.Cart{}, NewAppError(KindInvalidInput, "product_id required")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, errProductNotFound
	}
	if err != nil {
		return model.Cart{}, storeUnavailable(err)
	}
	if !p.InStock {
		return model.Cart{}, errOutOfStock
	}

	return u.AddItem(ctx, userID, p.ID, quantity, p.Snapshot())
}

// AddItem は同一商品なら数量を加算し、無ければ行を追加する。
// 単価は最初に入れたときのものを使い続ける。
func (u *CartUsecase) AddItem(ctx context.Context, userID, productID string, quantity int64, snap model.ProductSnapshot) (model.Cart, error) {
	if userID == "" {
		return model.Cart{}, errNotAuthenticated
	}
	if quantity < 1 || quantity > model.MaxItemQuantity {
		return model.Cart{}, errInvalidQuantity
	}

	return u.mutate(ctx, userID, func(c *model.Cart, now time.Time) (bool, error) {
		if !c.MergeItem(productID, quantity, snap, now) {
			return false, errQuantityLimit
		}
		return true, nil
	})
}

// RemoveItem は行ごと削除する。カートや明細が無くてもエラーにしない。
func (u *CartUsecase) RemoveItem(ctx context.Context, userID, productID string) (model.Cart, error) {
	if userID == "" {
		return model.Cart{}, errNotAuthenticated
	}

	return u.mutate(ctx, userID, func(c *model.Cart, _ time.Time) (bool, error) {
		return c.RemoveItem(productID), nil
	})
}

// UpdateItemQuantity は数量を上書きする（0なら行削除）。
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int64) (model.Cart, error) {
	if userID == "" {
		return model.Cart{}, errNotAuthenticated
	}
	if quantity < 0 || quantity > model.MaxItemQuantity {
		return model.Cart{}, errInvalidQuantity
	}

	return u.mutate(ctx, userID, func(c *model.Cart, _ time.Time) (bool, error) {
		if !c.SetQuantity(productID, quantity) {
			return false, errItemNotInCart
		}
		return true, nil
	})
}

// ClearCart は明細を空にする。
func (u *CartUsecase) ClearCart(ctx context.Context, userID string) (model.Cart, error) {
	if userID == "" {
		return model.Cart{}, errNotAuthenticated
	}

	return u.mutate(ctx, userID, func(c *model.Cart, _ time.Time) (bool, error) {
		if c.IsEmpty() {
			return false, nil
		}
		c.Clear()
		return true, nil
	})
}

// GetCart は無ければ空カートを返す（nilは返さない）。
func (u *CartUsecase) GetCart(ctx context.Context, userID string) (model.Cart, error) {
	if userID == "" {
		return model.Cart{}, errNotAuthenticated
	}

	cached, found, err := u.cache.Get(ctx, userID)
	if err != nil {
		u.log.WarnContext(ctx, "cart cache get failed", "user_id", userID, "err", err)
	}
	if err == nil && found {
		return cached, nil
	}

	// 同じユーザーの同時ミスは1回の読み込みにまとめる。
	// 先頭の呼び出し元がキャンセルされても相乗りした側は失敗させない
	v, err, _ := u.sfg.Do(userID, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		c, err := u.carts.FindByUserID(loadCtx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.NewEmptyCart(userID), nil
		}
		if err != nil {
			return nil, storeUnavailable(err)
		}
		u.fill(loadCtx, c)
		return c, nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return v.(model.Cart).Clone(), nil
}

// mutate は 読み込み→fn→再計算→version付き保存 を競合しなくなるまで繰り返す。
// fn が false を返したら保存せず現在のカートを返す。
func (u *CartUsecase) mutate(ctx context.Context, userID string, fn func(c *model.Cart, now time.Time) (bool, error)) (model.Cart, error) {
	out, err := retryOnConflict(ctx, u.retry, func() (model.Cart, error) {
		cur, err := u.carts.FindByUserID(ctx, userID)
		exists := true
		if errors.Is(err, repo.ErrNotFound) {
			exists = false
			cur = model.NewEmptyCart(userID)
		} else if err != nil {
			return model.Cart{}, storeUnavailable(err)
		}

		now := u.clock.Now()
		next := cur.Clone()
		changed, err := fn(&next, now)
		if err != nil {
			return model.Cart{}, err
		}
		if !changed {
			return cur, nil
		}

		if !exists {
			next.CreatedAt = now
		}
		next.UpdatedAt = now
		next.Recalculate()

		saved, err := u.carts.Save(ctx, next, cur.Version)
		if errors.Is(err, repo.ErrConflict) {
			return model.Cart{}, err
		}
		if err != nil {
			return model.Cart{}, storeUnavailable(err)
		}
		return saved, nil
	})
	if errors.Is(err, repo.ErrConflict) {
		u.log.WarnContext(ctx, "cart write gave up after conflicts", "user_id", userID)
		return model.Cart{}, errCartConflict
	}
	if err != nil {
		return model.Cart{}, err
	}

	u.invalidate(ctx, userID)
	return out, nil
}

// fill は読んだカートをキャッシュに入れる。
// 書き込み側は保存後に Delete するので、Set の後に store の version を見直し、
// 間に別の保存が挟まっていたら入れたものを捨てる。
func (u *CartUsecase) fill(ctx context.Context, c model.Cart) {
	if err := u.cache.Set(ctx, c); err != nil {
		u.log.WarnContext(ctx, "cart cache set failed", "user_id", c.UserID, "err", err)
		return
	}

	cur, err := u.carts.FindByUserID(ctx, c.UserID)
	if err == nil && cur.Version == c.Version {
		return
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		u.log.WarnContext(ctx, "cart recheck failed", "user_id", c.UserID, "err", err)
	}
	u.invalidate(ctx, c.UserID)
}

// invalidate はキャッシュを捨てる。失敗してもログだけ残す。
func (u *CartUsecase) invalidate(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := u.cache.Delete(ctx, userID); err != nil {
		u.log.WarnContext(ctx, "cart cache invalidate failed", "user_id", userID, "err", err)
	}
}

type nopCartCache struct{}

func (nopCartCache) Get(context.Context, string) (model.Cart, bool, error) {
	return model.Cart{}, false, nil
}
func (nopCartCache) Set(context.Context, model.Cart) error { return nil }
func (nopCartCache) Delete(context.Context, string) error  { return nil }
