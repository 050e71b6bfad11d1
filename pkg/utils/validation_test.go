package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string `validate:"required"`
	Backend string `validate:"oneof=memory badger"`
	Depth   int    `validate:"gte=1,lte=5"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{name: "valid", input: sample{Name: "a", Backend: "memory", Depth: 2}},
		{name: "missing name", input: sample{Backend: "memory", Depth: 2}, wantErr: "name is required"},
		{name: "bad backend", input: sample{Name: "a", Backend: "sql", Depth: 2}, wantErr: "backend must be one of: memory badger"},
		{name: "depth too low", input: sample{Name: "a", Backend: "badger", Depth: 0}, wantErr: "depth must be greater than or equal to 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestValidateStruct_JoinsMessages(t *testing.T) {
	err := ValidateStruct(sample{Backend: "sql", Depth: 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required; ")
	assert.Contains(t, err.Error(), "depth must be less than or equal to 5")
}
