package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Token
	}{
		{"numeric token_number", `{"token_number":5}`, "5"},
		{"string token", `{"token":"A-042"}`, "A-042"},
		{"token_number wins over token", `{"token_number":5,"token":"A-1"}`, "5"},
		{"null token_number falls through", `{"token_number":null,"token":7}`, "7"},
		{"nested appointment", `{"id":3,"appointment":{"token_number":12}}`, "12"},
		{"nested appointment token", `{"appointment":{"token":"C-9"}}`, "C-9"},
		{"top level wins over data wrapper", `{"token_number":5,"data":{"token":"X-1"}}`, "5"},
		{"data wrapper used last", `{"id":3,"data":{"token_number":8}}`, "8"},
		{"object sibling does not hide token_number", `{"token_number":5,"token":{"id":9}}`, "5"},
		{"scalar appointment does not hide token_number", `{"token_number":5,"appointment":17}`, "5"},
		{"bool token skipped", `{"token":true,"appointment":{"token_number":12}}`, "12"},
		{"no token", `{"id":3,"status":"scheduled"}`, ""},
		{"not an object", `[1,2]`, ""},
		{"invalid json", `{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractToken([]byte(tt.body)))
		})
	}
}
