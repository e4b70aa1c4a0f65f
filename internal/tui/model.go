// Package tui is a terminal storefront. It drives the same reducer as the
// web pages; only the rendering and the key bindings differ.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"Storefront/internal/storefront"
)

// Lister is the part of the catalog client the terminal storefront uses.
type Lister interface {
	ListProducts(ctx context.Context) ([]storefront.Product, error)
}

// productsMsg carries a catalog result back into Update. seq identifies the
// request so an answer to a superseded reload is dropped.
type productsMsg struct {
	seq      int
	products []storefront.Product
	err      error
}

type Model struct {
	ctx      context.Context
	catalog  Lister
	renderer storefront.Renderer
	log      *zap.Logger
	styles   Styles

	state   storefront.State
	seq     int
	cursor  int
	status  string
	spinner spinner.Model
	width   int
}

// New returns the model already in the mount state: products are requested
// by the first command Init returns.
func New(ctx context.Context, catalog Lister, renderer storefront.Renderer, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := Model{
		ctx:      ctx,
		catalog:  catalog,
		renderer: renderer,
		log:      log,
		styles:   styles,
		state:    storefront.NewState(),
		spinner:  sp,
	}
	m, _, _ = m.apply(storefront.RequestProducts{})
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(m.seq))
}

func (m Model) State() storefront.State { return m.state }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case productsMsg:
		if msg.seq != m.seq {
			m.log.Debug("dropping stale catalog result", zap.Int("seq", msg.seq), zap.Int("current", m.seq))
			return m, nil
		}
		var next storefront.Msg = storefront.ProductsFetched{Products: msg.products}
		if msg.err != nil {
			m.log.Warn("catalog fetch failed", zap.Error(msg.err))
			next = storefront.ProductsFetchFailed{Err: msg.err}
		}
		m, _, _ = m.apply(next)
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		if m.state.Phase != storefront.PhaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.state.Products)-1 {
			m.cursor++
		}

	case "enter", " ", "space", "a":
		if m.state.Phase != storefront.PhaseLoaded || len(m.state.Products) == 0 {
			return m, nil
		}
		p := m.state.Products[m.cursor]
		var out storefront.Outcome
		m, _, out = m.apply(storefront.AddToCart{ProductID: p.ID})
		if out == storefront.OutcomeApplied {
			m.status = fmt.Sprintf("Added %s (%d in cart)", p.Name, m.state.Cart.Quantity(p.ID))
		}

	case "r":
		m.status = ""
		var cmd tea.Cmd
		m, cmd, _ = m.apply(storefront.RequestProducts{})
		return m, tea.Batch(m.spinner.Tick, cmd)
	}
	return m, nil
}

// apply runs the reducer and turns its command into a tea.Cmd.
func (m Model) apply(msg storefront.Msg) (Model, tea.Cmd, storefront.Outcome) {
	next, cmd, out := storefront.Update(m.state, msg)
	m.state = next

	if _, ok := cmd.(storefront.FetchProductsCmd); ok {
		m.seq++
		return m, m.fetch(m.seq), out
	}
	return m, nil, out
}

func (m Model) fetch(seq int) tea.Cmd {
	ctx, catalog := m.ctx, m.catalog
	return func() tea.Msg {
		products, err := catalog.ListProducts(ctx)
		return productsMsg{seq: seq, products: products, err: err}
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Products) {
		m.cursor = max(len(m.state.Products)-1, 0)
	}
}

func (m Model) View() string {
	v := m.renderer.Render(m.state)

	var b strings.Builder
	b.WriteString(m.header(v))
	b.WriteString("\n\n")

	switch m.state.Phase {
	case storefront.PhaseLoading:
		b.WriteString(m.spinner.View() + " " + v.Message + "\n")

	case storefront.PhaseFailed:
		b.WriteString(m.styles.Error.Render(v.Message) + "\n")

	case storefront.PhaseLoaded:
		if len(v.Cards) == 0 {
			b.WriteString(m.styles.Status.Render("No products.") + "\n")
		}
		for i, c := range v.Cards {
			line := fmt.Sprintf("%s  %s", c.Name, m.styles.Price.Render(c.PriceText))
			if c.InCart > 0 {
				line += fmt.Sprintf("  x%d", c.InCart)
			}
			if i == m.cursor {
				b.WriteString(m.styles.Selected.Render("> "+line) + "\n")
				continue
			}
			b.WriteString(m.styles.Item.Render(line) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.styles.Status.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.styles.Help.Render("↑/↓ move • enter add • r reload • q quit"))
	return b.String()
}

func (m Model) header(v storefront.View) string {
	title := m.styles.Title.Render(v.Title)
	cart := m.styles.Cart.Render("Cart: " + v.TotalText)

	if m.width == 0 {
		return title + "   " + cart
	}
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(cart), 1)
	return title + strings.Repeat(" ", gap) + cart
}
