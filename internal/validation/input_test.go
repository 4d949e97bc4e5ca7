package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"jane@example.com",
		"first.last@mail.example.ca",
		"user+tag@domain.io",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"spaces in@example.com",
		"user@nodot",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("jane_doe99"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("CapitalLetters"))
	assert.Error(t, ValidateUsername("dash-not-allowed"))
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("title", "abc", 3, 10))
	assert.Error(t, ValidateLength("title", "ab", 3, 10))
	assert.Error(t, ValidateLength("title", "abcdefghijk", 3, 10))
	// Bounds count runes, not bytes.
	assert.NoError(t, ValidateLength("title", "héllo", 3, 5))
}
