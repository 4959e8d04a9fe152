package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHashAndCompare(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "registration password", password: "password123"},
		{name: "admin bootstrap secret", password: "admin-secret"},
		{name: "password with symbols", password: "m@p-P0I*2026!"},
		{name: "long passphrase", password: "ten-categories-and-a-hundred-points-on-the-free-plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := GetHash(tt.password)
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			assert.NoError(t, CompareHash(hash, tt.password))
			assert.Error(t, CompareHash(hash, tt.password+"x"))
			assert.Error(t, CompareHash(hash, ""))
		})
	}
}

func TestCompareHashRejectsForeignHash(t *testing.T) {
	aliceHash, err := GetHash("password123")
	require.NoError(t, err)
	bobHash, err := GetHash("password456")
	require.NoError(t, err)

	// bcrypt солит хэши: одинаковых хэшей не бывает даже у одинаковых паролей.
	assert.NotEqual(t, aliceHash, bobHash)
	assert.Error(t, CompareHash(bobHash, "password123"))
	assert.Error(t, CompareHash("not-a-bcrypt-hash", "password123"))
}
