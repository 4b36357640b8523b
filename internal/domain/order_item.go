package domain

// OrderItem represents a line item in an order. Name and Price are snapshots
// taken at checkout time so later catalog edits do not rewrite order history.
type OrderItem struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// LineTotal returns the total price for this line item, rounded to the cent.
func (i *OrderItem) LineTotal() float64 {
	return Round2(i.Price * float64(i.Quantity))
}
