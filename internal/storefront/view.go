package storefront

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

const (
	LoadingText = "Loading ..."
	ErrorText   = "Loading error :("
)

type Card struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Price       int64  `json:"price"`
	PriceText   string `json:"price_text"`
	InCart      int    `json:"in_cart"`
}

type LineView struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

// View is the render model of one page. It is derived from State on demand
// and never stored.
type View struct {
	Phase     string     `json:"phase"`
	Title     string     `json:"title"`
	Message   string     `json:"message,omitempty"`
	Cards     []Card     `json:"cards"`
	Cart      []LineView `json:"cart"`
	Count     int        `json:"count"`
	Total     int64      `json:"total"`
	TotalText string     `json:"total_text"`
}

type Renderer struct {
	Title string
	Money MoneyFormat
}

func (r Renderer) Render(s State) View {
	v := View{
		Phase:     s.Phase.String(),
		Title:     r.Title,
		Cards:     []Card{},
		Cart:      make([]LineView, 0, len(s.Cart.Lines)),
		Count:     s.Cart.Count(),
		Total:     s.Cart.Total(),
		TotalText: r.Money.Format(s.Cart.Total()),
	}

	for _, l := range s.Cart.Lines {
		v.Cart = append(v.Cart, LineView{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			Subtotal:  r.Money.Format(int64(l.Quantity) * l.Product.Price),
		})
	}

	switch s.Phase {
	case PhaseLoading:
		v.Message = LoadingText
	case PhaseFailed:
		v.Message = ErrorText
	case PhaseLoaded:
		v.Cards = make([]Card, 0, len(s.Products))
		for _, p := range s.Products {
			v.Cards = append(v.Cards, Card{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Attr("description"),
				Image:       p.Attr("image"),
				Price:       p.Price,
				PriceText:   r.Money.Format(p.Price),
				InCart:      s.Cart.Quantity(p.ID),
			})
		}
	}
	return v
}
