// Package mongo は MongoDB 用の repo.Store。
// カートは _id=userID の1ドキュメントで、version 条件付き更新で楽観ロックする。
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

const (
	cartsCollection    = "carts"
	ordersCollection   = "orders"
	productsCollection = "products"
	auditCollection    = "audit_logs"
)

type Store struct {
	db           *mongo.Database
	transactions bool
}

// NewStore は transactions=false なら WithinTx をセッション無しで実行する
// （レプリカセットでない mongod 向け）。
func NewStore(db *mongo.Database, transactions bool) *Store {
	return &Store{db: db, transactions: transactions}
}

var _ repo.Store = (*Store)(nil)

func (s *Store) Carts() repo.CartRepository         { return &cartRepo{coll: s.db.Collection(cartsCollection)} }
func (s *Store) Orders() repo.OrderRepository       { return &orderRepo{coll: s.db.Collection(ordersCollection)} }
func (s *Store) Products() repo.ProductRepository   { return &productRepo{coll: s.db.Collection(productsCollection)} }
func (s *Store) AuditLogs() repo.AuditLogRepository { return &auditRepo{coll: s.db.Collection(auditCollection)} }

func (s *Store) Atomic() bool { return s.transactions }

type txRepos struct {
	carts  *cartRepo
	orders *orderRepo
	audit  *auditRepo
}

func (r *txRepos) Orders() repo.OrderRepository       { return r.orders }
func (r *txRepos) Carts() repo.CartRepository         { return r.carts }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return r.audit }

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if !s.transactions {
		return fn(&txRepos{
			carts:  &cartRepo{coll: s.db.Collection(cartsCollection)},
			orders: &orderRepo{coll: s.db.Collection(ordersCollection)},
			audit:  &auditRepo{coll: s.db.Collection(auditCollection)},
		})
	}

	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	// repo 側は呼び出し元の ctx を受け取るので、セッションを持たせて包み直す
	r := &txRepos{
		carts:  &cartRepo{coll: s.db.Collection(cartsCollection), sess: sess},
		orders: &orderRepo{coll: s.db.Collection(ordersCollection), sess: sess},
		audit:  &auditRepo{coll: s.db.Collection(auditCollection), sess: sess},
	}
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(r)
	})
	return translateTxError(err)
}

// 同じドキュメントへの並行トランザクションは WriteConflict で負ける
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %v", repo.ErrConflict, err)
	}
	return err
}

func withSession(ctx context.Context, sess mongo.Session) context.Context {
	if sess == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, sess)
}

// EnsureIndexes は起動時に一度呼ぶ。
func (s *Store) EnsureIndexes(ctx context.Context) error {
	orders := s.db.Collection(ordersCollection)
	_, err := orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			// 冪等キーはユーザーごとに一意。空キーは対象外
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	_, err = s.db.Collection(auditCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "resource_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit log indexes: %w", err)
	}

	_, err = s.db.Collection(productsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

type cartRepo struct {
	coll *mongo.Collection
	sess mongo.Session
}

func (r *cartRepo) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	var doc cartDoc
	err := r.coll.FindOne(withSession(ctx, r.sess), bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.toModel()
}

func (r *cartRepo) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	ctx = withSession(ctx, r.sess)
	cart.Version = expectedVersion + 1
	doc, err := toCartDoc(cart)
	if err != nil {
		return model.Cart{}, err
	}

	if expectedVersion == 0 {
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return model.Cart{}, repo.ErrConflict
			}
			return model.Cart{}, fmt.Errorf("failed to create cart: %w", err)
		}
		return cart.Clone(), nil
	}

	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cart.UserID, "version": expectedVersion},
		bson.M{"$set": bson.M{
			"items":      doc.Items,
			"total":      doc.Total,
			"item_count": doc.ItemCount,
			"version":    doc.Version,
			"updated_at": updatedAt,
		}},
	)
	if err != nil {
		return model.Cart{}, fmt.Errorf("failed to update cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.Cart{}, repo.ErrConflict
	}
	return cart.Clone(), nil
}

func (r *cartRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.coll.DeleteOne(withSession(ctx, r.sess), bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

type orderRepo struct {
	coll *mongo.Collection
	sess mongo.Session
}

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var doc orderDoc
	err := r.coll.FindOne(withSession(ctx, r.sess), bson.M{"_id": orderID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toModel()
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var doc orderDoc
	err := r.coll.FindOne(withSession(ctx, r.sess), bson.M{"user_id": userID, "idempotency_key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, fmt.Errorf("failed to get order by key: %w", err)
	}
	o, err := doc.toModel()
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts = opts.SetLimit(int64(f.Limit)).SetSkip(int64(f.Offset()))
	}

	cur, err := r.coll.Find(withSession(ctx, r.sess), filter, opts)
	if err != nil {
		return []model.Order{}, fmt.Errorf("failed to list orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return []model.Order{}, fmt.Errorf("failed to decode orders: %w", err)
	}

	out := make([]model.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toModel()
		if err != nil {
			return []model.Order{}, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) error {
	doc, err := toOrderDoc(order)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(withSession(ctx, r.sess), doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus, updatedAt time.Time) error {
	ctx = withSession(ctx, r.sess)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": updatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": orderID})
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrConflict
}

type productRepo struct {
	coll *mongo.Collection
}

func (r *productRepo) FindByID(ctx context.Context, productID string) (model.Product, error) {
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Product{}, repo.ErrNotFound
		}
		return model.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toModel()
}

func (r *productRepo) List(ctx context.Context, f repo.ProductListFilter) ([]model.Product, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts = opts.SetLimit(int64(f.Limit)).SetSkip(int64(f.Offset()))
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return []model.Product{}, fmt.Errorf("failed to list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return []model.Product{}, fmt.Errorf("failed to decode products: %w", err)
	}

	out := make([]model.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toModel()
		if err != nil {
			return []model.Product{}, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, productID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *productRepo) Upsert(ctx context.Context, p model.Product) error {
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	_, err = r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

type auditRepo struct {
	coll *mongo.Collection
	sess mongo.Session
}

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	if _, err := r.coll.InsertOne(withSession(ctx, r.sess), toAuditLogDoc(log)); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	filter := bson.M{}
	if f.ActorUserID != "" {
		filter["actor_user_id"] = f.ActorUserID
	}
	if f.Action != "" {
		filter["action"] = string(f.Action)
	}
	if f.ResourceID != "" {
		filter["resource_id"] = f.ResourceID
	}
	created := bson.M{}
	if f.CreatedFrom != nil {
		created["$gte"] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		created["$lte"] = *f.CreatedTo
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts = opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts = opts.SetSkip(int64(f.Offset))
	}

	cur, err := r.coll.Find(withSession(ctx, r.sess), filter, opts)
	if err != nil {
		return []model.AuditLog{}, fmt.Errorf("failed to list audit logs: %w", err)
	}
	var docs []auditLogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return []model.AuditLog{}, fmt.Errorf("failed to decode audit logs: %w", err)
	}

	out := make([]model.AuditLog, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
