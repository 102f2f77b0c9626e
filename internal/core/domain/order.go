package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemKind string

const (
	ItemKindDefault  ItemKind = "default"
	ItemKindDonation ItemKind = "donation"
)

// DefaultOrderType is the order type carts are created with.
const DefaultOrderType = "default"

type Price struct {
	Number       decimal.Decimal
	CurrencyCode string
}

// Memorial holds the "in memory of" details attached to a donation.
type Memorial struct {
	InMemory      bool
	Name          string
	CardRequested bool
}

// Normalize drops the name and card flag when the donation is not a memorial.
func (m Memorial) Normalize() Memorial {
	if !m.InMemory {
		return Memorial{}
	}
	return m
}

type LineItem struct {
	ID        string
	OrderID   string
	Kind      ItemKind
	Title     string
	UnitPrice Price
	Quantity  int
	Memorial  Memorial
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID           string
	Type         string
	StoreID      string
	SessionID    string
	CurrencyCode string
	Items        []*LineItem
	Version      int // optimistic locking
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TotalPrice sums every item under the order's currency. Items are not
// converted between currencies.
func (o *Order) TotalPrice() Price {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Number.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return Price{Number: total, CurrencyCode: o.CurrencyCode}
}

// DonationItem returns the first donation item in sequence order, or nil.
// Any further donation items are ignored.
func (o *Order) DonationItem() *LineItem {
	for _, item := range o.Items {
		if item.Kind == ItemKindDonation {
			return item
		}
	}
	return nil
}

func (o *Order) AddItem(item *LineItem) {
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
}

// RemoveItem detaches the item with the given ID and reports whether it was present.
func (o *Order) RemoveItem(id string) bool {
	for i, item := range o.Items {
		if item.ID == id {
			o.Items = append(o.Items[:i:i], o.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Session is the visitor a cart and its resolved currency belong to.
type Session struct {
	ID      string
	StoreID string
}
