// Package catalog holds display metadata for order statuses.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

//go:embed statuses.yaml
var statusesYAML []byte

// Status is how one order status is labelled and coloured.
type Status struct {
	Code  domain.OrderStatus `yaml:"code"`
	Label string             `yaml:"label"`
	Color string             `yaml:"color"`
}

// Catalog is the ordered list of known statuses.
type Catalog struct {
	statuses []Status
	byCode   map[domain.OrderStatus]Status
}

type document struct {
	Statuses []Status `yaml:"statuses"`
}

// Parse decodes a status catalog and checks every code is a known order
// status.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode status catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[domain.OrderStatus]Status, len(doc.Statuses))}
	for _, s := range doc.Statuses {
		if _, err := domain.ParseOrderStatus(string(s.Code)); err != nil {
			return nil, fmt.Errorf("status catalog: %w", err)
		}
		if _, dup := c.byCode[s.Code]; dup {
			return nil, fmt.Errorf("status catalog: duplicate code %q", s.Code)
		}
		if s.Label == "" {
			s.Label = string(s.Code)
		}
		if s.Color == "" {
			s.Color = "gray"
		}
		c.statuses = append(c.statuses, s)
		c.byCode[s.Code] = s
	}
	return c, nil
}

// Default returns the embedded catalog. It panics if the embedded file is
// broken, which the package tests rule out.
func Default() *Catalog {
	c, err := Parse(statusesYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Statuses returns the statuses in display order.
func (c *Catalog) Statuses() []Status {
	out := make([]Status, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// Lookup returns the entry for code. Unknown codes get a gray badge
// labelled with the raw code.
func (c *Catalog) Lookup(code domain.OrderStatus) Status {
	if s, ok := c.byCode[code]; ok {
		return s
	}
	return Status{Code: code, Label: string(code), Color: "gray"}
}

// Label returns the display label of code.
func (c *Catalog) Label(code domain.OrderStatus) string {
	return c.Lookup(code).Label
}

// Options returns the statuses as select options.
func (c *Catalog) Options() []domain.Option {
	out := make([]domain.Option, 0, len(c.statuses))
	for _, s := range c.statuses {
		out = append(out, domain.Option{Value: string(s.Code), Label: s.Label})
	}
	return out
}
