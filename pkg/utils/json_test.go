package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	ID    int         `json:"id"`
	Name  string      `json:"product_name"`
	Price json.Number `json:"unit_price"`
	Tags  []string    `json:"tags,omitempty"`
}

func TestMarshalJSONIndentString(t *testing.T) {
	out, err := MarshalJSONIndentString(sample{ID: 1, Name: "Shirt", Price: "499.00"}, "  ")

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"id\": 1,\n  \"product_name\": \"Shirt\",\n  \"unit_price\": 499.00\n}", out)
}

func TestMarshalJSONIndentStringError(t *testing.T) {
	_, err := MarshalJSONIndentString(make(chan int), "  ")
	assert.Error(t, err)
}

func TestMarshalYAMLString(t *testing.T) {
	out, err := MarshalYAMLString([]sample{
		{ID: 1, Name: "Shirt", Price: "499.00", Tags: []string{"cotton"}},
		{ID: 2, Name: "Jacket", Price: "2499"},
	})

	require.NoError(t, err)
	assert.Contains(t, out, "unit_price: 499.00\n")
	assert.Contains(t, out, "unit_price: 2499\n")
	assert.Contains(t, out, "product_name: Shirt\n")
	assert.NotContains(t, out, `"499.00"`)

	var decoded []map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 1, decoded[0]["id"])
	assert.Equal(t, []interface{}{"cotton"}, decoded[0]["tags"])
	assert.Equal(t, 2499, decoded[1]["unit_price"])
}
