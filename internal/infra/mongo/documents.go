package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// 金額は Decimal128 で持つ（double だと 0.1 が丸まる）。

// d128 は最初の変換エラーだけを覚えておく。
type d128 struct {
	err error
}

func (e *d128) enc(d decimal.Decimal) primitive.Decimal128 {
	if e.err != nil {
		return primitive.Decimal128{}
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		e.err = fmt.Errorf("decimal128 %s: %w", d.String(), err)
	}
	return v
}

func fromD128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}

type cartItemDoc struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Image     string               `bson:"image,omitempty"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Quantity  int64                `bson:"quantity"`
	AddedAt   time.Time            `bson:"added_at"`
}

type cartDoc struct {
	UserID    string               `bson:"_id"`
	Items     []cartItemDoc        `bson:"items"`
	Total     primitive.Decimal128 `bson:"total"`
	ItemCount int64                `bson:"item_count"`
	Version   int64                `bson:"version"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func toCartDoc(c model.Cart) (cartDoc, error) {
	var e d128
	items := make([]cartItemDoc, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: e.enc(it.UnitPrice),
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	doc := cartDoc{
		UserID:    c.UserID,
		Items:     items,
		Total:     e.enc(c.Total),
		ItemCount: c.ItemCount,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	return doc, e.err
}

func (d cartDoc) toModel() (model.Cart, error) {
	c := model.Cart{
		UserID:    d.UserID,
		Items:     make([]model.CartItem, 0, len(d.Items)),
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, it := range d.Items {
		price, err := fromD128(it.UnitPrice)
		if err != nil {
			return model.Cart{}, fmt.Errorf("cart %s item %s price: %w", d.UserID, it.ProductID, err)
		}
		c.Items = append(c.Items, model.CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: price,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt.UTC(),
		})
	}
	c.Recalculate()
	return c, nil
}

type orderItemDoc struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Image     string               `bson:"image,omitempty"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Quantity  int64                `bson:"quantity"`
}

type addressDoc struct {
	Street  string `bson:"street"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	ZipCode string `bson:"zip_code"`
	Country string `bson:"country"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"user_id"`
	IdempotencyKey  string               `bson:"idempotency_key,omitempty"`
	Items           []orderItemDoc       `bson:"items"`
	Total           primitive.Decimal128 `bson:"total"`
	ItemCount       int64                `bson:"item_count"`
	Status          string               `bson:"status"`
	ShippingAddress addressDoc           `bson:"shipping_address"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func toOrderDoc(o model.Order) (orderDoc, error) {
	var e d128
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: e.enc(it.UnitPrice),
			Quantity:  it.Quantity,
		})
	}
	a := o.ShippingAddress
	doc := orderDoc{
		ID:              o.ID,
		UserID:          o.UserID,
		IdempotencyKey:  o.IdempotencyKey,
		Items:           items,
		Total:           e.enc(o.Total),
		ItemCount:       o.ItemCount,
		Status:          string(o.Status),
		ShippingAddress: addressDoc{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country},
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	return doc, e.err
}

func (d orderDoc) toModel() (model.Order, error) {
	total, err := fromD128(d.Total)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s total: %w", d.ID, err)
	}
	o := model.Order{
		ID:             d.ID,
		UserID:         d.UserID,
		IdempotencyKey: d.IdempotencyKey,
		Items:          make([]model.OrderItem, 0, len(d.Items)),
		Total:          total,
		ItemCount:      d.ItemCount,
		Status:         model.OrderStatus(d.Status),
		ShippingAddress: model.ShippingAddress{
			Street:  d.ShippingAddress.Street,
			City:    d.ShippingAddress.City,
			State:   d.ShippingAddress.State,
			ZipCode: d.ShippingAddress.ZipCode,
			Country: d.ShippingAddress.Country,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, it := range d.Items {
		price, err := fromD128(it.UnitPrice)
		if err != nil {
			return model.Order{}, fmt.Errorf("order %s item %s price: %w", d.ID, it.ProductID, err)
		}
		o.Items = append(o.Items, model.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: price,
			Quantity:  it.Quantity,
		})
	}
	return o, nil
}

type productDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Image       string               `bson:"image"`
	Category    string               `bson:"category"`
	InStock     bool                 `bson:"in_stock"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func toProductDoc(p model.Product) (productDoc, error) {
	var e d128
	doc := productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       e.enc(p.Price),
		Image:       p.Image,
		Category:    p.Category,
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	return doc, e.err
}

func (d productDoc) toModel() (model.Product, error) {
	price, err := fromD128(d.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %s price: %w", d.ID, err)
	}
	return model.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Image:       d.Image,
		Category:    d.Category,
		InStock:     d.InStock,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

type auditLogDoc struct {
	ID           string    `bson:"_id"`
	ActorUserID  string    `bson:"actor_user_id"`
	Action       string    `bson:"action"`
	ResourceType string    `bson:"resource_type"`
	ResourceID   string    `bson:"resource_id"`
	BeforeJSON   string    `bson:"before_json"`
	AfterJSON    string    `bson:"after_json"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toAuditLogDoc(l model.AuditLog) auditLogDoc {
	return auditLogDoc{
		ID:           l.ID,
		ActorUserID:  l.ActorUserID,
		Action:       string(l.Action),
		ResourceType: string(l.ResourceType),
		ResourceID:   l.ResourceID,
		BeforeJSON:   l.BeforeJSON,
		AfterJSON:    l.AfterJSON,
		CreatedAt:    l.CreatedAt,
	}
}

func (d auditLogDoc) toModel() model.AuditLog {
	return model.AuditLog{
		ID:           d.ID,
		ActorUserID:  d.ActorUserID,
		Action:       model.AuditAction(d.Action),
		ResourceType: model.AuditResourceType(d.ResourceType),
		ResourceID:   d.ResourceID,
		BeforeJSON:   d.BeforeJSON,
		AfterJSON:    d.AfterJSON,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}
