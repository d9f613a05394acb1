package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	Carts() CartRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error

	// Atomic が false のバックエンドは fn 内の書き込みがまとめて巻き戻らない。
	Atomic() bool
}

// Store は1つのバックエンドが提供する窓口一式。
type Store interface {
	TransactionManager
	Carts() CartRepository
	Orders() OrderRepository
	Products() ProductRepository
	AuditLogs() AuditLogRepository
}
