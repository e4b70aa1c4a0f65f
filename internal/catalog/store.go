package catalog

import "context"

// Product is the wire shape served at /products. Storefront clients treat any
// field beyond id, name and price as opaque.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Price       int64  `json:"price"`
}

type Store interface {
	Ping(ctx context.Context) error
	ListSortedByID(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, bool, error)
}

func NewStore() Store {
	return NewMemStore(DemoProducts()...)
}

// DemoProducts is the catalog served when no database is configured.
func DemoProducts() []Product {
	return []Product{
		{ID: 1, Name: "Ferris Plush", Description: "Soft crab, hard guarantees", Price: 25000},
		{ID: 2, Name: "Gopher Mug", Description: "Holds 350ml of anything", Price: 12000},
		{ID: 3, Name: "Mechanical Keyboard", Description: "Brown switches, 87 keys", Price: 89000},
		{ID: 4, Name: "Sticker Pack", Description: "Twelve assorted stickers", Price: 3500},
	}
}
