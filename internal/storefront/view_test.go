package storefront

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(t *testing.T) Renderer {
	t.Helper()
	money, err := NewMoneyFormat("KRW")
	require.NoError(t, err)
	return Renderer{Title: "Rust Web Site!", Money: money}
}

func TestMoneyFormat(t *testing.T) {
	m, err := NewMoneyFormat("KRW")
	require.NoError(t, err)

	require.NotEmpty(t, m.Symbol())
	assert.Equal(t, "KRW", m.Unit().String())
	assert.Equal(t, "4500.00 "+m.Symbol(), m.Format(4500))
	assert.Equal(t, "0.00 "+m.Symbol(), m.Format(0))

	_, err = NewMoneyFormat("NOPE")
	assert.Error(t, err)
}

func TestRender_Phases(t *testing.T) {
	r := testRenderer(t)

	v := r.Render(NewState())
	assert.Equal(t, "loading", v.Phase)
	assert.Equal(t, LoadingText, v.Message)
	assert.Empty(t, v.Cards)

	failed, _, _ := Update(loaded(productA), ProductsFetchFailed{Err: errors.New("x")})
	v = r.Render(failed)
	assert.Equal(t, "failed", v.Phase)
	assert.Equal(t, ErrorText, v.Message)
	assert.Empty(t, v.Cards, "error branch shows no cards")
}

func TestRender_LoadedWithCart(t *testing.T) {
	r := testRenderer(t)

	var img Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"name":"C","price":10,"image":"/c.png","description":"cee"}`), &img))

	s := loaded(productA, productB, img)
	for _, id := range []int64{1, 1, 2} {
		s, _, _ = Update(s, AddToCart{ProductID: id})
	}

	v := r.Render(s)
	assert.Equal(t, "loaded", v.Phase)
	assert.Equal(t, "Rust Web Site!", v.Title)
	require.Len(t, v.Cards, 3)
	assert.Equal(t, 2, v.Cards[0].InCart)
	assert.Equal(t, 1, v.Cards[1].InCart)
	assert.Equal(t, 0, v.Cards[2].InCart)
	assert.Equal(t, "/c.png", v.Cards[2].Image)
	assert.Equal(t, "cee", v.Cards[2].Description)

	assert.Equal(t, int64(4500), v.Total)
	assert.Equal(t, 3, v.Count)
	assert.True(t, strings.HasPrefix(v.TotalText, "4500.00 "), v.TotalText)
	require.Len(t, v.Cart, 2)
	assert.Equal(t, LineView{ProductID: 1, Name: "A", Quantity: 2, Subtotal: r.Money.Format(2000)}, v.Cart[0])
}

func TestRender_Idempotent(t *testing.T) {
	r := testRenderer(t)

	s := loaded(productA, productB)
	s, _, _ = Update(s, AddToCart{ProductID: 2})

	first := r.Render(s)
	second := r.Render(s)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("render not idempotent (-first +second):\n%s", diff)
	}
}

func TestTemplates_Branches(t *testing.T) {
	r := testRenderer(t)
	tmpl, err := Templates()
	require.NoError(t, err)

	render := func(s State) string {
		var buf bytes.Buffer
		require.NoError(t, tmpl.ExecuteTemplate(&buf, "home", r.Render(s)))
		return buf.String()
	}

	html := render(NewState())
	assert.Contains(t, html, LoadingText)
	assert.NotContains(t, html, "navbar_cart_value")

	failed, _, _ := Update(NewState(), ProductsFetchFailed{Err: errors.New("x")})
	html = render(failed)
	assert.Contains(t, html, ErrorText)
	assert.NotContains(t, html, "product_card_list")

	s := loaded(productA, productB)
	s, _, _ = Update(s, AddToCart{ProductID: 1})
	html = render(s)
	assert.Contains(t, html, "Rust Web Site!")
	assert.Contains(t, html, "Cart: 1000.00 ")
	assert.Contains(t, html, `action="/cart/1"`)
	assert.Contains(t, html, `action="/cart/2"`)
	assert.Equal(t, html, render(s))
}
