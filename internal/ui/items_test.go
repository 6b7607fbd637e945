package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cartagent/internal/config"
)

func TestParseItemLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []config.Item
	}{
		{
			name: "name only",
			text: "wireless mouse",
			want: []config.Item{{Name: "wireless mouse", Quantity: 1}},
		},
		{
			name: "full line",
			text: "usb hub | 4-port, powered | 2 | color:black,ports:4",
			want: []config.Item{{
				Name:        "usb hub",
				Description: "4-port, powered",
				Quantity:    2,
				Options:     map[string]string{"color": "black", "ports": "4"},
			}},
		},
		{
			name: "product url first field",
			text: "https://www.amazon.com/dp/B0ABC | | 2",
			want: []config.Item{{URL: "https://www.amazon.com/dp/B0ABC", Quantity: 2}},
		},
		{
			name: "blank lines skipped",
			text: "\nmouse\n\nkeyboard\n",
			want: []config.Item{
				{Name: "mouse", Quantity: 1},
				{Name: "keyboard", Quantity: 1},
			},
		},
		{
			name: "invalid quantity keeps default",
			text: "mouse | wireless | lots",
			want: []config.Item{{Name: "mouse", Description: "wireless", Quantity: 1}},
		},
		{
			name: "empty text",
			text: "   \n  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseItemLines(tt.text))
		})
	}
}
