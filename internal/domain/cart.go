package domain

import (
	"encoding/json"
	"strings"
)

// Product is a cart line item: the catalog record plus the quantity held in the cart.
// Catalog fields without a struct field are kept in Extra and written back out unchanged.
type Product struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount"`

	// read-only once decoded, copies of a Product share it
	Extra map[string]json.RawMessage `json:"-"`
}

var productFields = []string{"id", "title", "price", "image", "amount"}

type plainProduct Product

func (p Product) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(plainProduct(p))
	if err != nil || len(p.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(p.Extra)+len(productFields))
	for k, v := range p.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var base plainProduct
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if isProductField(k) {
			delete(all, k)
		}
	}

	base.Extra = nil
	if len(all) > 0 {
		base.Extra = all
	}
	*p = Product(base)
	return nil
}

// encoding/json matches field names case-insensitively
func isProductField(name string) bool {
	for _, f := range productFields {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Stock is the remotely available quantity for a product
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Cart is ordered and unique by product id.
type Cart []Product

func (c Cart) IndexOf(productID int64) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Find(productID int64) (Product, bool) {
	i := c.IndexOf(productID)
	if i < 0 {
		return Product{}, false
	}
	return c[i], true
}

// Clone returns a copy that shares no backing array with c. A nil cart clones to an empty one.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// WithAmount returns a copy of c where the entry for productID holds amount.
// Carts without that entry are returned unchanged.
func (c Cart) WithAmount(productID int64, amount int) Cart {
	out := c.Clone()
	if i := out.IndexOf(productID); i >= 0 {
		out[i].Amount = amount
	}
	return out
}

func (c Cart) Append(p Product) Cart {
	out := make(Cart, 0, len(c)+1)
	out = append(out, c...)
	return append(out, p)
}

func (c Cart) Without(productID int64) Cart {
	out := make(Cart, 0, len(c))
	for _, p := range c {
		if p.ID != productID {
			out = append(out, p)
		}
	}
	return out
}

// Valid reports whether every entry has a positive amount and ids are unique.
func (c Cart) Valid() bool {
	seen := make(map[int64]struct{}, len(c))
	for _, p := range c {
		if p.Amount < 1 {
			return false
		}
		if _, dup := seen[p.ID]; dup {
			return false
		}
		seen[p.ID] = struct{}{}
	}
	return true
}

// Size is the number of distinct products in the cart.
func (c Cart) Size() int {
	return len(c)
}
