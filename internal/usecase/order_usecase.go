package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

const maxIdempotencyKeyLen = 255

type OrderUsecase struct {
	store  repo.Store
	cache  CartCache
	events EventPublisher
	ids    IDGenerator
	clock  Clock
	retry  RetryPolicy
	log    *slog.Logger
}

type OrderDeps struct {
	Store  repo.Store
	Cache  CartCache
	Events EventPublisher
	IDs    IDGenerator
	Clock  Clock
	Retry  RetryPolicy
	Logger *slog.Logger
}

func NewOrderUsecase(d OrderDeps) *OrderUsecase {
	u := &OrderUsecase{
		store:  d.Store,
		cache:  d.Cache,
		events: d.Events,
		ids:    d.IDs,
		clock:  d.Clock,
		retry:  d.Retry,
		log:    d.Logger,
	}
	u.fillDefaults()
	return u
}

func (u *OrderUsecase) fillDefaults() {
	if u.cache == nil {
		u.cache = nopCartCache{}
	}
	if u.events == nil {
		u.events = nopPublisher{}
	}
	if u.ids == nil {
		u.ids = UUIDGenerator{}
	}
	if u.clock == nil {
		u.clock = SystemClock{}
	}
	if u.log == nil {
		u.log = slog.New(slog.DiscardHandler)
	}
}

type CreateOrderInput struct {
	ShippingAddress model.ShippingAddress
	// 同じキーの再送には作成済みの注文を返す（任意）
	IdempotencyKey string
}

// CreateOrder はカートを注文に写し取り、同じ操作の中でカートを空にする。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (model.Order, error) {
	if userID == "" {
		return model.Order{}, errNotAuthenticated
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return model.Order{}, NewAppError(KindInvalidInput, "invalid idempotency key")
	}
	addr := in.ShippingAddress.Normalize()
	if err := addr.Validate(); err != nil {
		return model.Order{}, &AppError{Kind: KindInvalidAddress, Message: "shipping address incomplete", Err: err}
	}

	var (
		order  model.Order
		replay bool
		err    error
	)
	if u.store.Atomic() {
		order, replay, err = u.createAtomic(ctx, userID, addr, key)
	} else {
		order, replay, err = u.createSequential(ctx, userID, addr, key)
	}
	if err != nil {
		return model.Order{}, err
	}
	if replay {
		return order, nil
	}

	u.invalidateCart(ctx, userID)
	u.publish(ctx, model.OrderEvent{
		Type:       model.EventOrderPlaced,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: order.CreatedAt,
	})
	return order, nil
}

// createAtomic は注文作成とカートクリアを1トランザクションで行う。
// カートが途中で更新されていたら（version不一致）最初からやり直す。
func (u *OrderUsecase) createAtomic(ctx context.Context, userID string, addr model.ShippingAddress, key string) (model.Order, bool, error) {
	type result struct {
		order  model.Order
		replay bool
	}

	res, err := retryOnConflict(ctx, u.retry, func() (result, error) {
		var out result
		err := u.store.WithinTx(ctx, func(r repo.TxRepos) error {
			if key != "" {
				existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
				if err != nil {
					return storeUnavailable(err)
				}
				if found {
					out = result{order: existing, replay: true}
					return nil
				}
			}

			cart, err := r.Carts().FindByUserID(ctx, userID)
			if errors.Is(err, repo.ErrNotFound) {
				return errEmptyCart
			}
			if err != nil {
				return storeUnavailable(err)
			}
			if cart.IsEmpty() {
				return errEmptyCart
			}

			now := u.clock.Now()
			order := model.NewOrderFromCart(u.ids.NewID(), cart, addr, key, now)
			if err := r.Orders().Create(ctx, order); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return err
				}
				return storeUnavailable(err)
			}

			cleared := cart.Clone()
			cleared.Clear()
			cleared.UpdatedAt = now
			if _, err := r.Carts().Save(ctx, cleared, cart.Version); err != nil {
				if errors.Is(err, repo.ErrConflict) {
					return err
				}
				return storeUnavailable(err)
			}

			out = result{order: order}
			return nil
		})
		return out, err
	})

	switch {
	case errors.Is(err, repo.ErrDuplicate) && key != "":
		// 同じキーで並行して確定された
		return u.findReplay(ctx, userID, key)
	case errors.Is(err, repo.ErrConflict):
		return model.Order{}, false, errCartConflict
	case err != nil:
		if _, ok := AsAppError(err); ok {
			return model.Order{}, false, err
		}
		return model.Order{}, false, storeUnavailable(err)
	}
	return res.order, res.replay, nil
}

// createSequential はトランザクションの無いストア向け。
// 注文を先に書き、カートのクリアはリトライする。最後まで失敗しても注文は成功扱い。
func (u *OrderUsecase) createSequential(ctx context.Context, userID string, addr model.ShippingAddress, key string) (model.Order, bool, error) {
	if key != "" {
		existing, found, err := u.store.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return model.Order{}, false, storeUnavailable(err)
		}
		if found {
			return existing, true, nil
		}
	}

	cart, err := u.store.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, false, errEmptyCart
	}
	if err != nil {
		return model.Order{}, false, storeUnavailable(err)
	}
	if cart.IsEmpty() {
		return model.Order{}, false, errEmptyCart
	}

	now := u.clock.Now()
	order := model.NewOrderFromCart(u.ids.NewID(), cart, addr, key, now)
	if err := u.store.Orders().Create(ctx, order); err != nil {
		if errors.Is(err, repo.ErrDuplicate) && key != "" {
			return u.findReplay(ctx, userID, key)
		}
		return model.Order{}, false, storeUnavailable(err)
	}

	if err := u.clearOrderedCart(ctx, cart, order); err != nil {
		u.log.ErrorContext(ctx, "cart clear after order failed",
			"user_id", userID, "order_id", order.ID, "err", err)
	}
	return order, false, nil
}

// clearOrderedCart は注文に写した分をカートから消す。
// スナップショット後にカートが変わっていたら、注文に含まれる行だけを消す。
func (u *OrderUsecase) clearOrderedCart(ctx context.Context, snapshot model.Cart, order model.Order) error {
	ctx = context.WithoutCancel(ctx)
	ordered := make(map[string]struct{}, len(order.Items))
	for _, it := range order.Items {
		ordered[it.ProductID] = struct{}{}
	}

	return retryTransient(ctx, u.retry, func() error {
		cur, err := u.store.Carts().FindByUserID(ctx, snapshot.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		next := cur.Clone()
		if cur.Version == snapshot.Version {
			next.Clear()
		} else {
			for pid := range ordered {
				next.RemoveItem(pid)
			}
		}
		next.UpdatedAt = u.clock.Now()
		_, err = u.store.Carts().Save(ctx, next, cur.Version)
		return err
	})
}

func (u *OrderUsecase) findReplay(ctx context.Context, userID, key string) (model.Order, bool, error) {
	existing, found, err := u.store.Orders().FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return model.Order{}, false, storeUnavailable(err)
	}
	if !found {
		return model.Order{}, false, storeUnavailable(repo.ErrDuplicate)
	}
	return existing, true, nil
}

// GetOrder は本人か管理者だけが読める。
func (u *OrderUsecase) GetOrder(ctx context.Context, actor model.Actor, orderID string) (model.Order, error) {
	if !actor.IsAuthenticated() {
		return model.Order{}, errNotAuthenticated
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Order{}, errOrderNotFound
	}

	o, err := u.store.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, errOrderNotFound
	}
	if err != nil {
		return model.Order{}, storeUnavailable(err)
	}
	if !actor.CanAccessUser(o.UserID) {
		return model.Order{}, errNotAuthorized
	}
	return o, nil
}

// ListOrders は userID の注文を新しい順に返す（userID が空なら自分の注文）。
func (u *OrderUsecase) ListOrders(ctx context.Context, actor model.Actor, userID string) ([]model.Order, error) {
	target, err := ResolveUser(actor, userID)
	if err != nil {
		return []model.Order{}, err
	}

	orders, err := u.store.Orders().List(ctx, repo.OrderListFilter{UserID: target})
	if err != nil {
		return []model.Order{}, storeUnavailable(err)
	}
	return orders, nil
}

func (u *OrderUsecase) invalidateCart(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := u.cache.Delete(ctx, userID); err != nil {
		u.log.WarnContext(ctx, "cart cache invalidate failed", "user_id", userID, "err", err)
	}
}

func (u *OrderUsecase) publish(ctx context.Context, ev model.OrderEvent) {
	publishEvent(ctx, u.events, u.log, ev)
}

// publishEvent はコミット後に呼ぶ。失敗はログだけで呼び出し元には返さない。
func publishEvent(ctx context.Context, events EventPublisher, log *slog.Logger, ev model.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := events.PublishOrderEvent(ctx, ev); err != nil {
		log.WarnContext(ctx, "order event publish failed",
			"type", ev.Type, "order_id", ev.OrderID, "err", err)
	}
}

type nopPublisher struct{}

func (nopPublisher) PublishOrderEvent(context.Context, model.OrderEvent) error { return nil }
