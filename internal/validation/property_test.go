package validation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateAddress("12 Baker Street"))
	assert.Error(t, ValidateAddress("   "))
	assert.Error(t, ValidateAddress(strings.Repeat("a", 256)))
}

func TestValidateActivityPath(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateActivityPath("/api/sales-->POST", 255))
	assert.Error(t, ValidateActivityPath("", 255))
	assert.Error(t, ValidateActivityPath(strings.Repeat("p", 256), 255))
	assert.NoError(t, ValidateActivityPath(strings.Repeat("é", 255), 255), "limit counts characters, not bytes")
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "", TruncateRunes("abc", 0))

	cut := TruncateRunes("/api/"+strings.Repeat("ü", 300), 255)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, 255, utf8.RuneCountInString(cut))
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateName("first_name", "Ann"))
	assert.ErrorContains(t, ValidateName("first_name", ""), "first_name is required")
}
