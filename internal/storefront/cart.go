package storefront

// CartLine is one product the shopper intends to buy. Quantity is at least 1.
type CartLine struct {
	Product  Product
	Quantity int
}

// Cart holds at most one line per product id, in first-added order.
type Cart struct {
	Lines []CartLine
}

// Add returns a cart with one more unit of p. The receiver is not modified.
func (c Cart) Add(p Product) Cart {
	lines := make([]CartLine, len(c.Lines), len(c.Lines)+1)
	copy(lines, c.Lines)

	for i := range lines {
		if lines[i].Product.ID == p.ID {
			lines[i].Quantity++
			return Cart{Lines: lines}
		}
	}
	return Cart{Lines: append(lines, CartLine{Product: p, Quantity: 1})}
}

// Quantity of product id in the cart, 0 if absent.
func (c Cart) Quantity(id int64) int {
	for _, l := range c.Lines {
		if l.Product.ID == id {
			return l.Quantity
		}
	}
	return 0
}

// Count is the number of units across all lines.
func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total is recomputed on every call; there is no stored running total.
func (c Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += int64(l.Quantity) * l.Product.Price
	}
	return total
}
