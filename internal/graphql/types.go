package graphql

import (
	"time"

	gql "github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
)

// 金額は精度を落とさないよう "25.50" のような文字列で返す
var decimalScalar = gql.NewScalar(gql.ScalarConfig{
	Name:        "Decimal",
	Description: "Exact decimal amount serialized as a string.",
	Serialize: func(v interface{}) interface{} {
		switch d := v.(type) {
		case decimal.Decimal:
			return d.String()
		case *decimal.Decimal:
			if d == nil {
				return nil
			}
			return d.String()
		}
		return nil
	},
})

func nonNull(t gql.Output) gql.Output { return gql.NewNonNull(t) }

var shippingAddressType = gql.NewObject(gql.ObjectConfig{
	Name: "ShippingAddress",
	Fields: gql.Fields{
		"street":  &gql.Field{Type: nonNull(gql.String)},
		"city":    &gql.Field{Type: nonNull(gql.String)},
		"state":   &gql.Field{Type: nonNull(gql.String)},
		"zipCode": &gql.Field{Type: nonNull(gql.String)},
		"country": &gql.Field{Type: nonNull(gql.String)},
	},
})

var shippingAddressInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "ShippingAddressInput",
	Fields: gql.InputObjectConfigFieldMap{
		"street":  &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		"city":    &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		"state":   &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		"zipCode": &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		"country": &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
	},
})

var cartItemType = gql.NewObject(gql.ObjectConfig{
	Name: "CartItem",
	Fields: gql.Fields{
		"productId": &gql.Field{Type: nonNull(gql.ID)},
		"name":      &gql.Field{Type: nonNull(gql.String)},
		"image":     &gql.Field{Type: gql.String},
		"unitPrice": &gql.Field{Type: nonNull(decimalScalar)},
		"quantity":  &gql.Field{Type: nonNull(gql.Int)},
		"addedAt":   &gql.Field{Type: gql.String},
	},
})

var cartType = gql.NewObject(gql.ObjectConfig{
	Name: "Cart",
	Fields: gql.Fields{
		"userId":    &gql.Field{Type: nonNull(gql.String)},
		"items":     &gql.Field{Type: nonNull(gql.NewList(nonNull(cartItemType)))},
		"total":     &gql.Field{Type: nonNull(decimalScalar)},
		"itemCount": &gql.Field{Type: nonNull(gql.Int)},
		"updatedAt": &gql.Field{Type: gql.String},
	},
})

var orderItemType = gql.NewObject(gql.ObjectConfig{
	Name: "OrderItem",
	Fields: gql.Fields{
		"productId": &gql.Field{Type: nonNull(gql.ID)},
		"name":      &gql.Field{Type: nonNull(gql.String)},
		"image":     &gql.Field{Type: gql.String},
		"unitPrice": &gql.Field{Type: nonNull(decimalScalar)},
		"quantity":  &gql.Field{Type: nonNull(gql.Int)},
	},
})

var orderType = gql.NewObject(gql.ObjectConfig{
	Name: "Order",
	Fields: gql.Fields{
		"id":              &gql.Field{Type: nonNull(gql.ID)},
		"userId":          &gql.Field{Type: nonNull(gql.String)},
		"items":           &gql.Field{Type: nonNull(gql.NewList(nonNull(orderItemType)))},
		"total":           &gql.Field{Type: nonNull(decimalScalar)},
		"itemCount":       &gql.Field{Type: nonNull(gql.Int)},
		"status":          &gql.Field{Type: nonNull(gql.String)},
		"shippingAddress": &gql.Field{Type: nonNull(shippingAddressType)},
		"createdAt":       &gql.Field{Type: gql.String},
		"updatedAt":       &gql.Field{Type: gql.String},
	},
})

var productType = gql.NewObject(gql.ObjectConfig{
	Name: "Product",
	Fields: gql.Fields{
		"id":          &gql.Field{Type: nonNull(gql.ID)},
		"name":        &gql.Field{Type: nonNull(gql.String)},
		"description": &gql.Field{Type: gql.String},
		"price":       &gql.Field{Type: nonNull(decimalScalar)},
		"image":       &gql.Field{Type: gql.String},
		"category":    &gql.Field{Type: gql.String},
		"inStock":     &gql.Field{Type: nonNull(gql.Boolean)},
	},
})

// 以下はモデル -> 応答マップ。既定のリゾルバがマップのキーで引く

func timeString(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func cartMap(c model.Cart) map[string]interface{} {
	items := make([]interface{}, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, map[string]interface{}{
			"productId": it.ProductID,
			"name":      it.Name,
			"image":     it.Image,
			"unitPrice": it.UnitPrice,
			"quantity":  it.Quantity,
			"addedAt":   timeString(it.AddedAt),
		})
	}
	return map[string]interface{}{
		"userId":    c.UserID,
		"items":     items,
		"total":     c.Total,
		"itemCount": c.ItemCount,
		"updatedAt": timeString(c.UpdatedAt),
	}
}

func orderMap(o model.Order) map[string]interface{} {
	items := make([]interface{}, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]interface{}{
			"productId": it.ProductID,
			"name":      it.Name,
			"image":     it.Image,
			"unitPrice": it.UnitPrice,
			"quantity":  it.Quantity,
		})
	}
	a := o.ShippingAddress
	return map[string]interface{}{
		"id":        o.ID,
		"userId":    o.UserID,
		"items":     items,
		"total":     o.Total,
		"itemCount": o.ItemCount,
		"status":    string(o.Status),
		"shippingAddress": map[string]interface{}{
			"street":  a.Street,
			"city":    a.City,
			"state":   a.State,
			"zipCode": a.ZipCode,
			"country": a.Country,
		},
		"createdAt": timeString(o.CreatedAt),
		"updatedAt": timeString(o.UpdatedAt),
	}
}

func ordersList(orders []model.Order) []interface{} {
	out := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderMap(o))
	}
	return out
}

func productMap(p model.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"image":       p.Image,
		"category":    p.Category,
		"inStock":     p.InStock,
	}
}

func productsList(products []model.Product) []interface{} {
	out := make([]interface{}, 0, len(products))
	for _, p := range products {
		out = append(out, productMap(p))
	}
	return out
}

func addressArg(v interface{}) model.ShippingAddress {
	m, _ := v.(map[string]interface{})
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return model.ShippingAddress{
		Street:  str("street"),
		City:    str("city"),
		State:   str("state"),
		ZipCode: str("zipCode"),
		Country: str("country"),
	}
}
