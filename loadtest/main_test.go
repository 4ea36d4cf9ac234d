package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatedID(t *testing.T) {
	id, err := authenticatedID(frame{Event: "authenticated", Data: json.RawMessage(`{"id":"u1","username":"a"}`)})
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"id":`},
		{"wrong shape", `"u1"`},
		{"missing id", `{"username":"a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authenticatedID(frame{Event: "authenticated", Data: json.RawMessage(tt.data)})
			assert.Error(t, err)
		})
	}
}
