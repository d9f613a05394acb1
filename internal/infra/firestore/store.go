// Package firestore は Cloud Firestore 用の repo.Store。
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

var errReadAfterWrite = errors.New("firestore: documents must be read before any write in a transaction")

type Store struct {
	client *firestore.Client
	prefix string // コレクション名の接頭辞（テストの分離用）
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

var _ repo.Store = (*Store)(nil)

func (s *Store) col(name string) *firestore.CollectionRef {
	return s.client.Collection(s.prefix + name)
}

func (s *Store) Carts() repo.CartRepository         { return &cartRepo{s: s} }
func (s *Store) Orders() repo.OrderRepository       { return &orderRepo{s: s} }
func (s *Store) Products() repo.ProductRepository   { return &productRepo{s: s} }
func (s *Store) AuditLogs() repo.AuditLogRepository { return &auditRepo{s: s} }

func (s *Store) Atomic() bool { return true }

// txState は1回のトランザクション試行ぶんの状態。
// Firestore は書き込み後の読み取りを許さないので、読んだカートの version を覚えておき
// Save ではそれと比較する。読んだドキュメントがコミットまでに変われば Aborted になる。
type txState struct {
	tx       *firestore.Transaction
	versions map[string]int64 // userID -> 読んだ version（未作成は 0）
	wrote    bool
}

type txRepos struct {
	carts  *cartRepo
	orders *orderRepo
	audit  *auditRepo
}

func (r *txRepos) Orders() repo.OrderRepository       { return r.orders }
func (r *txRepos) Carts() repo.CartRepository         { return r.carts }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return r.audit }

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		st := &txState{tx: tx, versions: map[string]int64{}}
		return fn(&txRepos{
			carts:  &cartRepo{s: s, st: st},
			orders: &orderRepo{s: s, st: st},
			audit:  &auditRepo{s: s, st: st},
		})
	})
	return translate(err)
}

// コミット時のエラーを repo のエラーに寄せる。fn が返した repo のエラーはそのまま。
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrConflict) || errors.Is(err, repo.ErrDuplicate) {
		return err
	}
	switch status.Code(err) {
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", repo.ErrDuplicate, err)
	case codes.Aborted, codes.FailedPrecondition:
		return fmt.Errorf("%w: %v", repo.ErrConflict, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", repo.ErrNotFound, err)
	}
	return err
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func get(ctx context.Context, st *txState, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if st != nil {
		return st.tx.Get(ref)
	}
	return ref.Get(ctx)
}

func documents(ctx context.Context, st *txState, q firestore.Query) *firestore.DocumentIterator {
	if st != nil {
		return st.tx.Documents(q)
	}
	return q.Documents(ctx)
}

type cartRepo struct {
	s  *Store
	st *txState
}

func (r *cartRepo) ref(userID string) *firestore.DocumentRef {
	return r.s.col("carts").Doc(userID)
}

func (r *cartRepo) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	snap, err := get(ctx, r.st, r.ref(userID))
	if err != nil {
		if isNotFound(err) {
			if r.st != nil {
				r.st.versions[userID] = 0
			}
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, err
	}

	var doc cartDoc
	if err := snap.DataTo(&doc); err != nil {
		return model.Cart{}, fmt.Errorf("decode cart %s: %w", userID, err)
	}
	if r.st != nil {
		r.st.versions[userID] = doc.Version
	}
	return doc.toModel(userID)
}

func (r *cartRepo) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	if r.st == nil {
		// 単発の Save も読み取り→比較→書き込みを1トランザクションで行う
		var out model.Cart
		err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			inner := &cartRepo{s: r.s, st: &txState{tx: tx, versions: map[string]int64{}}}
			var err error
			out, err = inner.Save(ctx, cart, expectedVersion)
			return err
		})
		if err != nil {
			return model.Cart{}, translate(err)
		}
		return out, nil
	}

	current, seen := r.st.versions[cart.UserID]
	if !seen {
		if r.st.wrote {
			return model.Cart{}, errReadAfterWrite
		}
		if _, err := r.FindByUserID(ctx, cart.UserID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, err
		}
		current = r.st.versions[cart.UserID]
	}
	if current != expectedVersion {
		return model.Cart{}, repo.ErrConflict
	}

	cart.Version = expectedVersion + 1
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = time.Now().UTC()
	}
	if err := r.st.tx.Set(r.ref(cart.UserID), toCartDoc(cart)); err != nil {
		return model.Cart{}, err
	}
	r.st.wrote = true
	r.st.versions[cart.UserID] = cart.Version
	return cart.Clone(), nil
}

func (r *cartRepo) Delete(ctx context.Context, userID string) error {
	if r.st != nil {
		r.st.wrote = true
		return r.st.tx.Delete(r.ref(userID))
	}
	_, err := r.ref(userID).Delete(ctx)
	return err
}

type orderRepo struct {
	s  *Store
	st *txState
}

func (r *orderRepo) ref(orderID string) *firestore.DocumentRef {
	return r.s.col("orders").Doc(orderID)
}

func (r *orderRepo) keyRef(userID, key string) *firestore.DocumentRef {
	sum := sha256.Sum256([]byte(userID + "\x00" + key))
	return r.s.col("idempotency_keys").Doc(hex.EncodeToString(sum[:]))
}

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	snap, err := get(ctx, r.st, r.ref(orderID))
	if err != nil {
		if isNotFound(err) {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, err
	}
	var doc orderDoc
	if err := snap.DataTo(&doc); err != nil {
		return model.Order{}, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return doc.toModel(orderID)
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	snap, err := get(ctx, r.st, r.keyRef(userID, key))
	if err != nil {
		if isNotFound(err) {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, err
	}
	var k idempotencyDoc
	if err := snap.DataTo(&k); err != nil {
		return model.Order{}, false, fmt.Errorf("decode idempotency key: %w", err)
	}
	o, err := r.FindByID(ctx, k.OrderID)
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	q := r.s.col("orders").Query
	if f.UserID != "" {
		q = q.Where("user_id", "==", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status", "==", string(f.Status))
	}
	q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if f.Limit > 0 {
		q = q.Offset(f.Offset()).Limit(f.Limit)
	}

	it := documents(ctx, r.st, q)
	defer it.Stop()

	out := []model.Order{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return []model.Order{}, err
		}
		var doc orderDoc
		if err := snap.DataTo(&doc); err != nil {
			return []model.Order{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		o, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return []model.Order{}, err
		}
		out = append(out, o)
	}
	return out, nil
}

// 注文と冪等キーを同じトランザクションで Create する。どちらかが既にあれば ErrDuplicate。
func (r *orderRepo) Create(ctx context.Context, order model.Order) error {
	write := func(tx *firestore.Transaction) error {
		if err := tx.Create(r.ref(order.ID), toOrderDoc(order)); err != nil {
			return err
		}
		if order.IdempotencyKey != "" {
			return tx.Create(r.keyRef(order.UserID, order.IdempotencyKey), idempotencyDoc{OrderID: order.ID, UserID: order.UserID})
		}
		return nil
	}

	if r.st != nil {
		r.st.wrote = true
		return write(r.st.tx)
	}
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return write(tx)
	})
	return translate(err)
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus, updatedAt time.Time) error {
	ref := r.ref(orderID)
	write := func(tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return repo.ErrNotFound
			}
			return err
		}
		var doc orderDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.Status != string(from) {
			return repo.ErrConflict
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: "updated_at", Value: updatedAt},
		})
	}

	if r.st != nil {
		if r.st.wrote {
			return errReadAfterWrite
		}
		r.st.wrote = true
		return write(r.st.tx)
	}
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return write(tx)
	})
	return translate(err)
}

type productRepo struct {
	s *Store
}

func (r *productRepo) FindByID(ctx context.Context, productID string) (model.Product, error) {
	snap, err := r.s.col("products").Doc(productID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return model.Product{}, repo.ErrNotFound
		}
		return model.Product{}, err
	}
	var doc productDoc
	if err := snap.DataTo(&doc); err != nil {
		return model.Product{}, fmt.Errorf("decode product %s: %w", productID, err)
	}
	return doc.toModel(productID)
}

func (r *productRepo) List(ctx context.Context, f repo.ProductListFilter) ([]model.Product, error) {
	q := r.s.col("products").Query
	if f.Category != "" {
		q = q.Where("category", "==", f.Category)
	}
	q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if f.Limit > 0 {
		q = q.Offset(f.Offset()).Limit(f.Limit)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	out := []model.Product{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return []model.Product{}, err
		}
		var doc productDoc
		if err := snap.DataTo(&doc); err != nil {
			return []model.Product{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		p, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return []model.Product{}, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Exists 付きなので無ければ NotFound になる
func (r *productRepo) Delete(ctx context.Context, productID string) error {
	_, err := r.s.col("products").Doc(productID).Delete(ctx, firestore.Exists)
	return translate(err)
}

func (r *productRepo) Upsert(ctx context.Context, p model.Product) error {
	_, err := r.s.col("products").Doc(p.ID).Set(ctx, toProductDoc(p))
	return err
}

type auditRepo struct {
	s  *Store
	st *txState
}

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	ref := r.s.col("audit_logs").Doc(log.ID)
	if r.st != nil {
		r.st.wrote = true
		return r.st.tx.Create(ref, toAuditLogDoc(log))
	}
	_, err := ref.Create(ctx, toAuditLogDoc(log))
	return translate(err)
}

func (r *auditRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	q := r.s.col("audit_logs").Query
	if f.ActorUserID != "" {
		q = q.Where("actor_user_id", "==", f.ActorUserID)
	}
	if f.Action != "" {
		q = q.Where("action", "==", string(f.Action))
	}
	if f.ResourceID != "" {
		q = q.Where("resource_id", "==", f.ResourceID)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at", ">=", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at", "<=", *f.CreatedTo)
	}
	q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	it := documents(ctx, r.st, q)
	defer it.Stop()

	out := []model.AuditLog{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return []model.AuditLog{}, err
		}
		var doc auditLogDoc
		if err := snap.DataTo(&doc); err != nil {
			return []model.AuditLog{}, fmt.Errorf("decode audit log %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toModel(snap.Ref.ID))
	}
	return out, nil
}
