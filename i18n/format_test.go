package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	vars := map[string]any{
		"condition": "fine",
		"deep":      map[string]any{"value": "better"},
		"count":     3,
		"a.b":       "literal",
		"user":      MessageMap{"name": "Alex"},
		"flat":      map[string]string{"x": "X"},
	}

	tests := []struct {
		message string
		want    string
	}{
		{"This is %condition.", "This is fine."},
		{"This is even %deep.value.", "This is even better."},
		{"%count items", "3 items"},
		{"Literal %a.b wins", "Literal literal wins"},
		{"Hello %user.name!", "Hello Alex!"},
		{"%flat.x", "X"},
		{"100%% sure", "100% sure"},
		{"Unknown %missing stays", "Unknown %missing stays"},
		{"Unknown %deep.missing stays", "Unknown %deep.missing stays"},
		{"Trailing %", "Trailing %"},
		{"50% off", "50% off"},
		{"no markers", "no markers"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.message, vars))
		})
	}
}

func TestFormat_NilVars(t *testing.T) {
	assert.Equal(t, "This is %condition.", Format("This is %condition.", nil))
}
