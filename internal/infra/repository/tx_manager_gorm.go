package repository

import (
	"context"

	"gorm.io/gorm"

	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

type txReposGorm struct {
	orders repo.OrderRepository
	carts  repo.CartRepository
	audit  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository       { return r.orders }
func (r *txReposGorm) Carts() repo.CartRepository         { return r.carts }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.audit }

// GormStore は PostgreSQL 用の repo.Store。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ repo.Store = (*GormStore)(nil)

func (s *GormStore) Carts() repo.CartRepository         { return NewCartGormRepository(s.db) }
func (s *GormStore) Orders() repo.OrderRepository       { return NewOrderGormRepository(s.db) }
func (s *GormStore) Products() repo.ProductRepository   { return NewProductGormRepository(s.db) }
func (s *GormStore) AuditLogs() repo.AuditLogRepository { return NewAuditLogGormRepository(s.db) }

func (s *GormStore) Atomic() bool { return true }

func (s *GormStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders: NewOrderGormRepository(tx),
			carts:  NewCartGormRepository(tx),
			audit:  NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
