package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// テーブル行。明細は JSON の text カラムで丸ごと持つ（カートは1行で楽観ロックするため）。

type cartRecord struct {
	UserID    string          `gorm:"primaryKey;type:varchar(128)"`
	Items     string          `gorm:"type:text;not null"`
	Total     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ItemCount int64           `gorm:"not null"`
	Version   int64           `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (cartRecord) TableName() string { return "carts" }

type addressColumns struct {
	Street  string `gorm:"type:varchar(255)"`
	City    string `gorm:"type:varchar(255)"`
	State   string `gorm:"type:varchar(255)"`
	ZipCode string `gorm:"type:varchar(20)"`
	Country string `gorm:"type:varchar(100)"`
}

type orderRecord struct {
	ID              string          `gorm:"primaryKey;type:varchar(64)"`
	UserID          string          `gorm:"type:varchar(128);not null;index;uniqueIndex:idx_orders_user_idem,where:idempotency_key <> ''"`
	IdempotencyKey  string          `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_orders_user_idem"`
	Items           string          `gorm:"type:text;not null"`
	Total           decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ItemCount       int64           `gorm:"not null"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	ShippingAddress addressColumns  `gorm:"embedded;embeddedPrefix:shipping_"`
	CreatedAt       time.Time       `gorm:"not null;index"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

func (orderRecord) TableName() string { return "orders" }

type productRecord struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Image       string          `gorm:"type:text"`
	Category    string          `gorm:"type:varchar(100);index"`
	InStock     bool            `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

func (productRecord) TableName() string { return "products" }

// Models は AutoMigrate に渡すテーブル一覧。
func Models() []interface{} {
	return []interface{}{&cartRecord{}, &orderRecord{}, &productRecord{}, &model.AuditLog{}}
}

func toCartRecord(c model.Cart) (cartRecord, error) {
	items := c.Items
	if items == nil {
		items = []model.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return cartRecord{}, fmt.Errorf("encode cart items: %w", err)
	}
	return cartRecord{
		UserID:    c.UserID,
		Items:     string(b),
		Total:     c.Total,
		ItemCount: c.ItemCount,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

func (r cartRecord) toModel() (model.Cart, error) {
	c := model.Cart{
		UserID:    r.UserID,
		Version:   r.Version,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Items), &c.Items); err != nil {
		return model.Cart{}, fmt.Errorf("decode cart items: %w", err)
	}
	// 派生値は保存値を信用せず作り直す
	c.Recalculate()
	return c, nil
}

func toOrderRecord(o model.Order) (orderRecord, error) {
	b, err := json.Marshal(o.Items)
	if err != nil {
		return orderRecord{}, fmt.Errorf("encode order items: %w", err)
	}
	a := o.ShippingAddress
	return orderRecord{
		ID:             o.ID,
		UserID:         o.UserID,
		IdempotencyKey: o.IdempotencyKey,
		Items:          string(b),
		Total:          o.Total,
		ItemCount:      o.ItemCount,
		Status:         string(o.Status),
		ShippingAddress: addressColumns{
			Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}, nil
}

func (r orderRecord) toModel() (model.Order, error) {
	o := model.Order{
		ID:             r.ID,
		UserID:         r.UserID,
		IdempotencyKey: r.IdempotencyKey,
		Total:          r.Total,
		ItemCount:      r.ItemCount,
		Status:         model.OrderStatus(r.Status),
		ShippingAddress: model.ShippingAddress{
			Street:  r.ShippingAddress.Street,
			City:    r.ShippingAddress.City,
			State:   r.ShippingAddress.State,
			ZipCode: r.ShippingAddress.ZipCode,
			Country: r.ShippingAddress.Country,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Items), &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	return o, nil
}

func toProductRecord(p model.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r productRecord) toModel() model.Product {
	return model.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Image:       r.Image,
		Category:    r.Category,
		InStock:     r.InStock,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}
