// Package navigation models the dashboard sidebar and filters it by the
// feature-flag settings.
package navigation

import "github.com/al-bashkir/erp-portal/internal/settings"

// Item is one sidebar entry. Items without a Flag are always shown.
type Item struct {
	Key   string
	Label string
	Path  string
	Flag  string
}

var defaultItems = []Item{
	{Key: "dashboard", Label: "Dashboard", Path: "/"},
	{Key: "inventory", Label: "Inventory", Path: "/m/inventory", Flag: "inventory_enabled"},
	{Key: "sales", Label: "Sales", Path: "/m/sales", Flag: "sales_enabled"},
	{Key: "purchasing", Label: "Purchasing", Path: "/m/purchasing", Flag: "purchasing_enabled"},
	{Key: "accounting", Label: "Accounting", Path: "/m/accounting", Flag: "accounting_enabled"},
	{Key: "hr", Label: "Human Resources", Path: "/m/hr", Flag: "hr_enabled"},
	{Key: "reports", Label: "Reports", Path: "/m/reports", Flag: "reports_enabled"},
}

// DefaultItems returns the full sidebar in display order.
func DefaultItems() []Item {
	out := make([]Item, len(defaultItems))
	copy(out, defaultItems)
	return out
}

// Visible filters items by s. While settings are unloaded (nil) every
// item is shown; once loaded, a flagged item is shown only when its flag
// is the literal "true".
func Visible(items []Item, s settings.Settings) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if s == nil || it.Flag == "" || s.Enabled(it.Flag) {
			out = append(out, it)
		}
	}
	return out
}

// Lookup finds an item by key.
func Lookup(items []Item, key string) (Item, bool) {
	for _, it := range items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Allowed reports whether the item with key is reachable under s.
func Allowed(items []Item, s settings.Settings, key string) bool {
	_, ok := Lookup(Visible(items, s), key)
	return ok
}
