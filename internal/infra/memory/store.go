// Package memory はテストとローカル開発用のインメモリ実装。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

type state struct {
	carts    map[string]model.Cart
	orders   map[string]model.Order
	products map[string]model.Product
	audit    []model.AuditLog
}

func newState() *state {
	return &state{
		carts:    map[string]model.Cart{},
		orders:   map[string]model.Order{},
		products: map[string]model.Product{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.carts {
		out.carts[k] = v.Clone()
	}
	for k, v := range s.orders {
		out.orders[k] = v.Clone()
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	out.audit = append([]model.AuditLog(nil), s.audit...)
	return out
}

// Store は repo.Store のインメモリ実装。
// WithinTx は状態のコピーに対して fn を実行し、成功したときだけ差し替える。
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

var _ repo.Store = (*Store)(nil)

func (s *Store) Carts() repo.CartRepository         { return &cartRepo{s: s} }
func (s *Store) Orders() repo.OrderRepository       { return &orderRepo{s: s} }
func (s *Store) Products() repo.ProductRepository   { return &productRepo{s: s} }
func (s *Store) AuditLogs() repo.AuditLogRepository { return &auditRepo{s: s} }

func (s *Store) Atomic() bool { return true }

type txRepos struct {
	carts  *cartRepo
	orders *orderRepo
	audit  *auditRepo
}

func (r *txRepos) Orders() repo.OrderRepository       { return r.orders }
func (r *txRepos) Carts() repo.CartRepository         { return r.carts }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return r.audit }

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	r := &txRepos{
		carts:  &cartRepo{s: s, tx: work},
		orders: &orderRepo{s: s, tx: work},
		audit:  &auditRepo{s: s, tx: work},
	}
	if err := fn(r); err != nil {
		return err
	}
	s.st = work
	return nil
}

// tx が nil ならロックを取って本体の状態を触る。
func with(s *Store, tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type cartRepo struct {
	s  *Store
	tx *state
}

func (r *cartRepo) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	var out model.Cart
	err := with(r.s, r.tx, func(st *state) error {
		c, ok := st.carts[userID]
		if !ok {
			return repo.ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *cartRepo) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	var out model.Cart
	err := with(r.s, r.tx, func(st *state) error {
		cur, ok := st.carts[cart.UserID]
		if !ok && expectedVersion != 0 {
			return repo.ErrConflict
		}
		if ok && cur.Version != expectedVersion {
			return repo.ErrConflict
		}
		out = cart.Clone()
		out.Version = expectedVersion + 1
		st.carts[cart.UserID] = out.Clone()
		return nil
	})
	return out, err
}

func (r *cartRepo) Delete(ctx context.Context, userID string) error {
	return with(r.s, r.tx, func(st *state) error {
		delete(st.carts, userID)
		return nil
	})
}

type orderRepo struct {
	s  *Store
	tx *state
}

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var out model.Order
	err := with(r.s, r.tx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var out model.Order
	var found bool
	err := with(r.s, r.tx, func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID && o.IdempotencyKey == key {
				out = o.Clone()
				found = true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	out := []model.Order{}
	err := with(r.s, r.tx, func(st *state) error {
		for _, o := range st.orders {
			if f.UserID != "" && o.UserID != f.UserID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			out = append(out, o.Clone())
		}
		return nil
	})
	if err != nil {
		return []model.Order{}, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	off := f.Offset()
	if off >= len(out) {
		return []model.Order{}, nil
	}
	out = out[off:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) error {
	return with(r.s, r.tx, func(st *state) error {
		if _, ok := st.orders[order.ID]; ok {
			return repo.ErrDuplicate
		}
		if order.IdempotencyKey != "" {
			for _, o := range st.orders {
				if o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
					return repo.ErrDuplicate
				}
			}
		}
		st.orders[order.ID] = order.Clone()
		return nil
	})
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus, updatedAt time.Time) error {
	return with(r.s, r.tx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		if o.Status != from {
			return repo.ErrConflict
		}
		o.Status = to
		o.UpdatedAt = updatedAt
		st.orders[orderID] = o
		return nil
	})
}

type productRepo struct {
	s *Store
}

func (r *productRepo) FindByID(ctx context.Context, productID string) (model.Product, error) {
	var out model.Product
	err := with(r.s, nil, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *productRepo) List(ctx context.Context, f repo.ProductListFilter) ([]model.Product, error) {
	out := []model.Product{}
	err := with(r.s, nil, func(st *state) error {
		for _, p := range st.products {
			if f.Category != "" && p.Category != f.Category {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return []model.Product{}, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	off := f.Offset()
	if off >= len(out) {
		return []model.Product{}, nil
	}
	out = out[off:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, productID string) error {
	return with(r.s, nil, func(st *state) error {
		if _, ok := st.products[productID]; !ok {
			return repo.ErrNotFound
		}
		delete(st.products, productID)
		return nil
	})
}

func (r *productRepo) Upsert(ctx context.Context, p model.Product) error {
	return with(r.s, nil, func(st *state) error {
		st.products[p.ID] = p
		return nil
	})
}

type auditRepo struct {
	s  *Store
	tx *state
}

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	return with(r.s, r.tx, func(st *state) error {
		st.audit = append(st.audit, log)
		return nil
	})
}

func (r *auditRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	err := with(r.s, r.tx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			l := st.audit[i]
			if f.ActorUserID != "" && l.ActorUserID != f.ActorUserID {
				continue
			}
			if f.Action != "" && l.Action != f.Action {
				continue
			}
			if f.ResourceID != "" && l.ResourceID != f.ResourceID {
				continue
			}
			if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
				continue
			}
			if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return []model.AuditLog{}, err
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.AuditLog{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
