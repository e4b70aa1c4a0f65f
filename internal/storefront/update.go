package storefront

// Phase of the catalog load.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// State is everything one storefront page knows. Err is set only in
// PhaseFailed. Products survive a failed reload.
type State struct {
	Phase    Phase
	Products []Product
	Err      error
	Cart     Cart
}

// NewState is the mount state: loading, nothing fetched, empty cart.
func NewState() State {
	return State{Phase: PhaseLoading}
}

func (s State) product(id int64) (Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

type Msg interface{ isMsg() }

type (
	RequestProducts     struct{}
	ProductsFetched     struct{ Products []Product }
	ProductsFetchFailed struct{ Err error }
	AddToCart           struct{ ProductID int64 }
)

func (RequestProducts) isMsg()     {}
func (ProductsFetched) isMsg()     {}
func (ProductsFetchFailed) isMsg() {}
func (AddToCart) isMsg()           {}

// Cmd is a side effect requested by Update for the driver to run.
type Cmd interface{ isCmd() }

// FetchProductsCmd asks the driver to list products and feed the result
// back as ProductsFetched or ProductsFetchFailed.
type FetchProductsCmd struct{}

func (FetchProductsCmd) isCmd() {}

// Outcome tells the caller whether a message changed anything.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeIgnored
)

func (o Outcome) String() string {
	if o == OutcomeIgnored {
		return "ignored"
	}
	return "applied"
}

// Update is the storefront reducer. It never panics on unknown product ids;
// those come back as OutcomeIgnored with the state untouched.
func Update(s State, msg Msg) (State, Cmd, Outcome) {
	switch m := msg.(type) {
	case RequestProducts:
		s.Phase = PhaseLoading
		s.Err = nil
		return s, FetchProductsCmd{}, OutcomeApplied

	case ProductsFetched:
		s.Products = m.Products
		s.Phase = PhaseLoaded
		s.Err = nil
		return s, nil, OutcomeApplied

	case ProductsFetchFailed:
		s.Phase = PhaseFailed
		s.Err = m.Err
		return s, nil, OutcomeApplied

	case AddToCart:
		p, ok := s.product(m.ProductID)
		if !ok {
			return s, nil, OutcomeIgnored
		}
		s.Cart = s.Cart.Add(p)
		return s, nil, OutcomeApplied
	}
	return s, nil, OutcomeIgnored
}
