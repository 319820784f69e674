package rating_test

import (
	"testing"

	"github.com/mauv0809/match-ledger/internal/rating"
	"github.com/stretchr/testify/assert"
)

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.043, "+0.043"},
		{-0.043, "-0.043"},
		{0, "0.000"},
		{-0.0001, "0.000"},
		{0.0426, "+0.043"},
		{1.5, "+1.500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rating.FormatDelta(tt.in))
	}
}
