package domain

// Product is a live catalog entry.
type Product struct {
	ID        string
	Name      string
	Price     int64
	PriceType string // e.g. "per kg", "per piece"
	Category  string
	Image     string
	Stock     int
}

// CartLine is a cart item joined with the current state of its product.
type CartLine struct {
	ID       string
	Quantity int
	Product  Product
}

// ProductTotal is always quantity times the current unit price.
func (l CartLine) ProductTotal() int64 {
	return int64(l.Quantity) * l.Product.Price
}

// Cart is the working set of a session.
type Cart struct {
	ID        string
	SessionID string
	UserID    string
	Lines     []CartLine
}

// Subtotal sums the product totals of all lines.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.ProductTotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// LineIDs returns the ids of the cart's lines in order.
func (c *Cart) LineIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ID)
	}
	return ids
}
