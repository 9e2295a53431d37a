package cart

import (
	"time"

	"vinmarket-be/internal/shipping"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart holds a buyer's in-progress purchase from a single seller.
type Cart struct {
	ID          uuid.UUID
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	SellerName  string
	TotalAmount decimal.Decimal
	Items       []Item
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item's UnitPrice is captured when the wine is first added and is never
// refreshed from the live listing.
type Item struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	WineID    uuid.UUID
	WineTitle string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Bottles is the number of units across all lines.
func (c *Cart) Bottles() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

type SellerCart struct {
	CartID       uuid.UUID
	SellerID     uuid.UUID
	SellerName   string
	Items        []Item
	ItemCount    int
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

type View struct {
	Sellers      []SellerCart
	TotalItems   int
	TotalAmount  decimal.Decimal
	ShippingCost decimal.Decimal
	GrandTotal   decimal.Decimal
}

// Summarize prices every seller cart independently. Carts without items
// are skipped.
func Summarize(carts []*Cart) *View {
	v := &View{
		Sellers:      []SellerCart{},
		TotalAmount:  decimal.Zero,
		ShippingCost: decimal.Zero,
		GrandTotal:   decimal.Zero,
	}

	for _, c := range carts {
		if len(c.Items) == 0 {
			continue
		}

		subtotal := c.Subtotal()
		bottles := c.Bottles()
		fee := shipping.Cost(subtotal, bottles)

		v.Sellers = append(v.Sellers, SellerCart{
			CartID:       c.ID,
			SellerID:     c.SellerID,
			SellerName:   c.SellerName,
			Items:        c.Items,
			ItemCount:    bottles,
			Subtotal:     subtotal,
			ShippingCost: fee,
			Total:        subtotal.Add(fee),
		})

		v.TotalItems += bottles
		v.TotalAmount = v.TotalAmount.Add(subtotal)
		v.ShippingCost = v.ShippingCost.Add(fee)
	}

	v.GrandTotal = v.TotalAmount.Add(v.ShippingCost)
	return v
}
