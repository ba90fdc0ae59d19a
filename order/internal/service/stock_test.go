package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestMergeDemands(t *testing.T) {
	tests := []struct {
		name        string
		input       []Demand
		expected    []Demand
		expectedErr error
	}{
		{
			name:     "given empty demands should return empty",
			input:    nil,
			expected: []Demand{},
		},
		{
			name: "given duplicate products should sum and sort by product id",
			input: []Demand{
				{ProductID: 3, Quantity: 1},
				{ProductID: 1, Quantity: 2},
				{ProductID: 3, Quantity: 4},
			},
			expected: []Demand{
				{ProductID: 1, Quantity: 2},
				{ProductID: 3, Quantity: 5},
			},
		},
		{
			name:        "given zero quantity should return validation error",
			input:       []Demand{{ProductID: 1, Quantity: 0}},
			expectedErr: inErrors.ErrValidation,
		},
		{
			name: "given merged quantity overflowing should return validation error",
			input: []Demand{
				{ProductID: 1, Quantity: math.MaxInt32},
				{ProductID: 1, Quantity: 1},
			},
			expectedErr: inErrors.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := MergeDemands(tt.input)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
