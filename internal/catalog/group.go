package catalog

import (
	"strings"
	"unicode"
)

// GroupName derives the menu-grouping title from a product name by
// cutting the name at its first numeric token: "PUBG 60 UC" and
// "PUBG 325 UC" both group under "PUBG". Names without a numeric token
// group under themselves.
func GroupName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		if hasDigit(f) {
			if i == 0 {
				return strings.TrimSpace(name)
			}
			return strings.Join(fields[:i], " ")
		}
	}
	return strings.TrimSpace(name)
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// GroupProducts buckets products by group name, preserving the input
// order inside each bucket and returning group names in first-seen
// order.
func GroupProducts(products []Product) ([]string, map[string][]Product) {
	var order []string
	groups := make(map[string][]Product)
	for _, p := range products {
		g := GroupName(p.Name)
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], p)
	}
	return order, groups
}
