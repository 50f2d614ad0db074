// Package material holds the static material tables: the point table used
// when registering recycling, and the category list used for aggregation.
//
// The two tables differ on purpose: "eletrônico" is an aggregation category
// with no selectable entry and no point value, so its count stays at zero.
package material

import "strings"

// Definition is a selectable material with its fixed point value.
type Definition struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Icon   string `json:"icon"`
}

// Category is an aggregation bucket shown on the home view.
type Category struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Canonical selectable material names.
const (
	Metal    = "Metal"
	Plastico = "Plástico"
	Vidro    = "Vidro"
	Papel    = "Papel"
)

var selectable = []Definition{
	{Name: Metal, Points: 10, Icon: "weight"},
	{Name: Plastico, Points: 8, Icon: "bottle-soda"},
	{Name: Vidro, Points: 6, Icon: "glass-fragile"},
	{Name: Papel, Points: 4, Icon: "file-document"},
}

var categories = []Category{
	{Name: "plástico", Icon: "bottle-soda"},
	{Name: "vidro", Icon: "glass-fragile"},
	{Name: "papel", Icon: "file-document"},
	{Name: "metal", Icon: "weight"},
	{Name: "eletrônico", Icon: "chip"},
}

// Selectable returns the registration point table in display order.
func Selectable() []Definition {
	out := make([]Definition, len(selectable))
	copy(out, selectable)
	return out
}

// Categories returns the aggregation categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Lookup resolves a selectable material by name. An exact match wins;
// otherwise the comparison is case-insensitive, so "vidro" resolves to Vidro.
func Lookup(name string) (Definition, bool) {
	name = strings.TrimSpace(name)
	for _, d := range selectable {
		if d.Name == name {
			return d, true
		}
	}
	for _, d := range selectable {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Definition{}, false
}

// Matches reports whether a stored material name belongs to category c.
func (c Category) Matches(materialName string) bool {
	return strings.EqualFold(c.Name, materialName)
}
