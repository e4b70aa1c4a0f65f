package storefront

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Product is one catalog item. ID, Name and Price are what the storefront
// works with; every other field from the catalog is kept verbatim in
// Attributes and written back out on marshal.
type Product struct {
	ID         int64
	Name       string
	Price      int64
	Attributes map[string]json.RawMessage
}

var errNegativePrice = errors.New("negative price")

func (p *Product) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var out Product
	for _, f := range []struct {
		key string
		dst any
	}{
		{"id", &out.ID},
		{"name", &out.Name},
		{"price", &out.Price},
	} {
		v, ok := raw[f.key]
		if !ok {
			return fmt.Errorf("product: missing %q", f.key)
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return fmt.Errorf("product: %q is null", f.key)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return fmt.Errorf("product: field %q: %w", f.key, err)
		}
		delete(raw, f.key)
	}
	if out.Price < 0 {
		return fmt.Errorf("product %d: %w", out.ID, errNegativePrice)
	}

	if len(raw) > 0 {
		out.Attributes = raw
	}
	*p = out
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Attributes)+3)
	for k, v := range p.Attributes {
		m[k] = v
	}
	m["id"] = p.ID
	m["name"] = p.Name
	m["price"] = p.Price
	return json.Marshal(m)
}

// Attr returns a string attribute, or "" when it is absent or not a string.
func (p Product) Attr(key string) string {
	v, ok := p.Attributes[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
