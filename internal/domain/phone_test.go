package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("0987654321"))

	for _, phone := range []string{
		"098765432",
		"09876543210",
		"098765432a",
		"0987 654321",
		"+84987654321",
		"1987654321",
		"",
	} {
		assert.False(t, IsValidPhone(phone), phone)
	}
}
