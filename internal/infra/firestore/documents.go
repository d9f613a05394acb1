package firestore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// 金額は文字列で持つ（Firestore の数値は float64）。

type cartItemDoc struct {
	ProductID string    `firestore:"product_id"`
	Name      string    `firestore:"name"`
	Image     string    `firestore:"image,omitempty"`
	UnitPrice string    `firestore:"unit_price"`
	Quantity  int64     `firestore:"quantity"`
	AddedAt   time.Time `firestore:"added_at"`
}

type cartDoc struct {
	UserID    string        `firestore:"user_id"`
	Items     []cartItemDoc `firestore:"items"`
	Total     string        `firestore:"total"`
	ItemCount int64         `firestore:"item_count"`
	Version   int64         `firestore:"version"`
	CreatedAt time.Time     `firestore:"created_at"`
	UpdatedAt time.Time     `firestore:"updated_at"`
}

func toCartDoc(c model.Cart) cartDoc {
	items := make([]cartItemDoc, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.UnitPrice.String(),
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	return cartDoc{
		UserID:    c.UserID,
		Items:     items,
		Total:     c.Total.String(),
		ItemCount: c.ItemCount,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// 合計・件数は保存値を使わず明細から作り直す。
func (d cartDoc) toModel(userID string) (model.Cart, error) {
	c := model.Cart{
		UserID:    userID,
		Items:     make([]model.CartItem, 0, len(d.Items)),
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return model.Cart{}, fmt.Errorf("cart %s item %s price: %w", userID, it.ProductID, err)
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
	ProductID string `firestore:"product_id"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image,omitempty"`
	UnitPrice string `firestore:"unit_price"`
	Quantity  int64  `firestore:"quantity"`
}

type addressDoc struct {
	Street  string `firestore:"street"`
	City    string `firestore:"city"`
	State   string `firestore:"state"`
	ZipCode string `firestore:"zip_code"`
	Country string `firestore:"country"`
}

type orderDoc struct {
	UserID          string         `firestore:"user_id"`
	IdempotencyKey  string         `firestore:"idempotency_key"`
	Items           []orderItemDoc `firestore:"items"`
	Total           string         `firestore:"total"`
	ItemCount       int64          `firestore:"item_count"`
	Status          string         `firestore:"status"`
	ShippingAddress addressDoc     `firestore:"shipping_address"`
	CreatedAt       time.Time      `firestore:"created_at"`
	UpdatedAt       time.Time      `firestore:"updated_at"`
}

func toOrderDoc(o model.Order) orderDoc {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: it.UnitPrice.String(),
			Quantity:  it.Quantity,
		})
	}
	a := o.ShippingAddress
	return orderDoc{
		UserID:          o.UserID,
		IdempotencyKey:  o.IdempotencyKey,
		Items:           items,
		Total:           o.Total.String(),
		ItemCount:       o.ItemCount,
		Status:          string(o.Status),
		ShippingAddress: addressDoc{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country},
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (d orderDoc) toModel(id string) (model.Order, error) {
	total, err := decimal.NewFromString(d.Total)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s total: %w", id, err)
	}
	o := model.Order{
		ID:             id,
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
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return model.Order{}, fmt.Errorf("order %s item %s price: %w", id, it.ProductID, err)
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
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Price       string    `firestore:"price"`
	Image       string    `firestore:"image"`
	Category    string    `firestore:"category"`
	InStock     bool      `firestore:"in_stock"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func toProductDoc(p model.Product) productDoc {
	return productDoc{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Image:       p.Image,
		Category:    p.Category,
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d productDoc) toModel(id string) (model.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %s price: %w", id, err)
	}
	return model.Product{
		ID:          id,
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
	ActorUserID  string    `firestore:"actor_user_id"`
	Action       string    `firestore:"action"`
	ResourceType string    `firestore:"resource_type"`
	ResourceID   string    `firestore:"resource_id"`
	BeforeJSON   string    `firestore:"before_json"`
	AfterJSON    string    `firestore:"after_json"`
	CreatedAt    time.Time `firestore:"created_at"`
}

func toAuditLogDoc(l model.AuditLog) auditLogDoc {
	return auditLogDoc{
		ActorUserID:  l.ActorUserID,
		Action:       string(l.Action),
		ResourceType: string(l.ResourceType),
		ResourceID:   l.ResourceID,
		BeforeJSON:   l.BeforeJSON,
		AfterJSON:    l.AfterJSON,
		CreatedAt:    l.CreatedAt,
	}
}

func (d auditLogDoc) toModel(id string) model.AuditLog {
	return model.AuditLog{
		ID:           id,
		ActorUserID:  d.ActorUserID,
		Action:       model.AuditAction(d.Action),
		ResourceType: model.AuditResourceType(d.ResourceType),
		ResourceID:   d.ResourceID,
		BeforeJSON:   d.BeforeJSON,
		AfterJSON:    d.AfterJSON,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// idempotency_keys/{hash(userID, key)}。Create の一意性で二重注文を防ぐ。
type idempotencyDoc struct {
	OrderID string `firestore:"order_id"`
	UserID  string `firestore:"user_id"`
}
