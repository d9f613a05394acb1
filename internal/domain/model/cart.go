package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細。
// unit_price は最初に追加した時点の価格を保持する（再追加でも上書きしない）。
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// 小計
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// 追加時点の商品情報（表示用フィールドのコピー）。
type ProductSnapshot struct {
	Name      string
	Image     string
	UnitPrice decimal.Decimal
}

// 1ユーザーにつき1つ。docIDはuserID。
// Total / ItemCount は Items からの派生値で、Recalculate 以外で書き換えない。
type Cart struct {
	UserID    string          `json:"user_id"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int64           `json:"item_count"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewEmptyCart は空カートを返す（nilではなく空配列）。
func NewEmptyCart(userID string) Cart {
	return Cart{
		UserID: userID,
		Items:  []CartItem{},
		Total:  decimal.Zero,
	}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Recalculate は items 全体から total と item_count を作り直す。差分加算はしない。
func (c *Cart) Recalculate() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	total := decimal.Zero
	var count int64
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
		count += it.Quantity
	}
	c.Total = total
	c.ItemCount = count
}

// IndexOf は productID の明細位置を返す（無ければ -1）。
func (c Cart) IndexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// MaxItemQuantity は1行あたりの数量上限。
const MaxItemQuantity int64 = 999

// MergeItem は同一商品なら数量加算、無ければ末尾に追加する。
// 加算後に MaxItemQuantity を超えるなら何も変えずに false を返す。
func (c *Cart) MergeItem(productID string, qty int64, snap ProductSnapshot, now time.Time) bool {
	if qty < 1 || qty > MaxItemQuantity {
		return false
	}
	if i := c.IndexOf(productID); i >= 0 {
		if qty > MaxItemQuantity-c.Items[i].Quantity {
			return false
		}
		c.Items[i].Quantity += qty
		c.Recalculate()
		return true
	}
	c.Items = append(c.Items, CartItem{
		ProductID: productID,
		Name:      snap.Name,
		Image:     snap.Image,
		UnitPrice: snap.UnitPrice,
		Quantity:  qty,
		AddedAt:   now,
	})
	c.Recalculate()
	return true
}

// RemoveItem は明細を行ごと削除する。削除したら true。
func (c *Cart) RemoveItem(productID string) bool {
	i := c.IndexOf(productID)
	if i < 0 {
		return false
	}
	items := make([]CartItem, 0, len(c.Items)-1)
	items = append(items, c.Items[:i]...)
	items = append(items, c.Items[i+1:]...)
	c.Items = items
	c.Recalculate()
	return true
}

// SetQuantity は数量を上書きする。0なら行ごと削除。明細が無ければ false。
func (c *Cart) SetQuantity(productID string, qty int64) bool {
	i := c.IndexOf(productID)
	if i < 0 {
		return false
	}
	if qty == 0 {
		return c.RemoveItem(productID)
	}
	c.Items[i].Quantity = qty
	c.Recalculate()
	return true
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}

// Clone は items を含めたコピーを返す。
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}
