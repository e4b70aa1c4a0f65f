package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"Storefront/internal/storefront"
)

var demo = []storefront.Product{
	{ID: 1, Name: "A", Price: 1000},
	{ID: 2, Name: "B", Price: 2500},
}

type fakeLister struct {
	products []storefront.Product
	err      error
	calls    int
}

func (f *fakeLister) ListProducts(context.Context) ([]storefront.Product, error) {
	f.calls++
	return f.products, f.err
}

func newModel(t *testing.T, l Lister) Model {
	t.Helper()
	money, err := storefront.NewMoneyFormat("KRW")
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	return New(context.Background(), l, storefront.Renderer{Title: "Rust Web Site!", Money: money}, nil)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	m := newModel(t, &fakeLister{products: demo})
	return send(m, productsMsg{seq: m.seq, products: demo})
}

func TestModel_StartsLoading(t *testing.T) {
	l := &fakeLister{products: demo}
	m := newModel(t, l)

	if m.State().Phase != storefront.PhaseLoading {
		t.Fatalf("phase = %s, want loading", m.State().Phase)
	}
	if !strings.Contains(m.View(), storefront.LoadingText) {
		t.Errorf("loading view missing %q", storefront.LoadingText)
	}

	msg := m.fetch(m.seq)()
	pm, ok := msg.(productsMsg)
	if !ok {
		t.Fatalf("fetch returned %T", msg)
	}
	if l.calls != 1 || len(pm.products) != 2 {
		t.Errorf("calls=%d products=%d", l.calls, len(pm.products))
	}

	m = send(m, pm)
	if m.State().Phase != storefront.PhaseLoaded {
		t.Errorf("phase = %s, want loaded", m.State().Phase)
	}
}

func TestModel_AddToCartWithKeys(t *testing.T) {
	m := loadedModel(t)

	m = send(m, key("enter"), key("a"), key("down"), key("space"))

	cart := m.State().Cart
	if got := cart.Quantity(1); got != 2 {
		t.Errorf("product 1 quantity = %d, want 2", got)
	}
	if got := cart.Quantity(2); got != 1 {
		t.Errorf("product 2 quantity = %d, want 1", got)
	}
	if got := cart.Total(); got != 4500 {
		t.Errorf("total = %d, want 4500", got)
	}
	if !strings.Contains(m.View(), "Cart: 4500.00") {
		t.Errorf("view missing cart total:\n%s", m.View())
	}
}

func TestModel_CursorStaysInBounds(t *testing.T) {
	m := loadedModel(t)

	m = send(m, key("k"), key("up"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d after moving up at top", m.cursor)
	}

	m = send(m, key("j"), key("j"), key("down"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
}

func TestModel_AddIgnoredWhileLoading(t *testing.T) {
	m := newModel(t, &fakeLister{})
	m = send(m, key("enter"))

	if m.State().Cart.Count() != 0 {
		t.Errorf("cart changed while loading")
	}
}

func TestModel_FailureShowsErrorAndKeepsProducts(t *testing.T) {
	m := loadedModel(t)
	m = send(m, key("a"))

	next, cmd := m.Update(key("r"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("reload returned no command")
	}
	if m.State().Phase != storefront.PhaseLoading {
		t.Fatalf("phase = %s, want loading", m.State().Phase)
	}

	m = send(m, productsMsg{seq: m.seq, err: errors.New("down")})
	if m.State().Phase != storefront.PhaseFailed {
		t.Fatalf("phase = %s, want failed", m.State().Phase)
	}
	if !strings.Contains(m.View(), storefront.ErrorText) {
		t.Errorf("view missing %q", storefront.ErrorText)
	}
	if len(m.State().Products) != 2 || m.State().Cart.Total() != 1000 {
		t.Errorf("products=%d total=%d", len(m.State().Products), m.State().Cart.Total())
	}
}

func TestModel_DropsStaleResult(t *testing.T) {
	m := loadedModel(t)
	stale := m.seq

	m = send(m, key("down"), key("r"))
	m = send(m, productsMsg{seq: stale, products: demo[:1]})

	if m.State().Phase != storefront.PhaseLoading {
		t.Errorf("stale result applied: phase = %s", m.State().Phase)
	}

	m = send(m, productsMsg{seq: m.seq, products: demo[1:]})
	if len(m.State().Products) != 1 || m.State().Products[0].ID != 2 {
		t.Errorf("products = %+v", m.State().Products)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := loadedModel(t).Update(key(k))
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", k)
		}
	}
}
