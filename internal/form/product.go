package form

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// ProductForm holds the raw values of the product add/edit modal.
type ProductForm struct {
	Title      string
	Desc       string
	Categories []string
	Price      string
	Quantity   string
}

// ParseProduct reads the modal's fields. Categories is a multi-select.
func ParseProduct(v url.Values) ProductForm {
	cats := make([]string, 0, len(v["categories"]))
	for _, c := range v["categories"] {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	return ProductForm{
		Title:      v.Get("title"),
		Desc:       v.Get("desc"),
		Categories: cats,
		Price:      v.Get("price"),
		Quantity:   v.Get("quantity"),
	}
}

// ProductFormFrom prefills the modal from a stored product.
func ProductFormFrom(p domain.Product) ProductForm {
	f := ProductForm{
		Title:      p.Title,
		Desc:       p.Desc,
		Categories: append([]string(nil), p.Categories...),
	}
	if p.Price != nil {
		f.Price = strconv.Itoa(*p.Price)
	}
	if p.Quantity != nil {
		f.Quantity = strconv.Itoa(*p.Quantity)
	}
	return f
}

// HasCategory reports whether id is selected.
func (f ProductForm) HasCategory(id string) bool {
	for _, c := range f.Categories {
		if c == id {
			return true
		}
	}
	return false
}

// Validate returns the API payload or the field errors.
func (f ProductForm) Validate() (domain.ProductPayload, error) {
	c := newChecker("product.validate")

	title := cleanText(f.Title)
	c.required("title", title)
	c.maxLength("title", title)

	desc := cleanText(f.Desc)
	c.required("desc", desc)
	c.maxLength("desc", desc)

	for _, cat := range f.Categories {
		c.maxLength("categories", cat)
	}

	price := c.integer("price", f.Price, 0)
	quantity := c.integer("quantity", f.Quantity, 0)

	if err := c.err(); err != nil {
		return domain.ProductPayload{}, err
	}
	return domain.ProductPayload{
		Title:      title,
		Desc:       desc,
		Categories: f.Categories,
		Price:      price,
		Quantity:   quantity,
	}, nil
}
