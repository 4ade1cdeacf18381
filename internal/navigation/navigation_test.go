package navigation

import (
	"reflect"
	"testing"

	"github.com/al-bashkir/erp-portal/internal/settings"
)

func keys(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key)
	}
	return out
}

func TestVisible(t *testing.T) {
	all := keys(DefaultItems())

	tests := []struct {
		name     string
		settings settings.Settings
		want     []string
	}{
		{
			name:     "unloaded shows everything",
			settings: nil,
			want:     all,
		},
		{
			name:     "loaded but empty shows only unflagged",
			settings: settings.Settings{},
			want:     []string{"dashboard"},
		},
		{
			name: "only literal true",
			settings: settings.Settings{
				"inventory_enabled":  "true",
				"sales_enabled":      "false",
				"accounting_enabled": "TRUE",
				"reports_enabled":    "1",
				"hr_enabled":         "true",
			},
			want: []string{"dashboard", "inventory", "hr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keys(Visible(DefaultItems(), tt.settings))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultItemsIsCopy(t *testing.T) {
	items := DefaultItems()
	items[0].Label = "changed"
	if DefaultItems()[0].Label != "Dashboard" {
		t.Error("DefaultItems must return an independent slice")
	}
}

func TestAllowed(t *testing.T) {
	s := settings.Settings{"sales_enabled": "true"}
	if !Allowed(DefaultItems(), s, "sales") {
		t.Error("sales should be allowed")
	}
	if Allowed(DefaultItems(), s, "inventory") {
		t.Error("inventory should be hidden")
	}
	if Allowed(DefaultItems(), nil, "unknown") {
		t.Error("unknown key is never allowed")
	}
	if _, ok := Lookup(DefaultItems(), "reports"); !ok {
		t.Error("reports should exist")
	}
}
