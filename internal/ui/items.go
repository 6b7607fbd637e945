package ui

import (
	"strconv"
	"strings"

	"cartagent/internal/config"
)

// ParseItemLines converts the form's one-item-per-line text into items.
// Format: Name | Description | Quantity | key:value,key2:value2
// A first field starting with http:// or https:// is taken as a product URL
// instead of a name; a malformed quantity keeps the default.
func ParseItemLines(text string) []config.Item {
	var items []config.Item

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "|")
		first := strings.TrimSpace(parts[0])
		if first == "" {
			continue
		}
		item := config.Item{Name: first, Quantity: 1}
		if strings.HasPrefix(first, "http://") || strings.HasPrefix(first, "https://") {
			item.Name = ""
			item.URL = first
		}

		if len(parts) > 1 {
			item.Description = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			if qty, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && qty > 0 {
				item.Quantity = qty
			}
		}
		if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
			options := map[string]string{}
			for _, pair := range strings.Split(parts[3], ",") {
				key, value, ok := strings.Cut(pair, ":")
				if !ok {
					continue
				}
				options[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
			if len(options) > 0 {
				item.Options = options
			}
		}

		items = append(items, item)
	}
	return items
}
