package secret

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Uniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		s, err := New()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(s), 43, "256 bits of entropy base64-encoded")
		_, dup := seen[s]
		require.False(t, dup, "secrets must not repeat")
		seen[s] = struct{}{}
	}
}

func TestVerify(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	h := Hash(s)
	assert.True(t, Verify(h, s))
	assert.False(t, Verify(h, s+"x"))
	assert.False(t, Verify(h, ""))
}

func TestWithID_RoundTrip(t *testing.T) {
	id := uuid.New()
	s, err := New()
	require.NoError(t, err)

	token := WithID(id, s)
	gotID, gotSecret, err := SplitID(token)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, s, gotSecret)
}

func TestSplitID_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "no separator", token: "abcdef"},
		{name: "empty secret", token: uuid.NewString() + "|"},
		{name: "bad uuid", token: "not-a-uuid|secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SplitID(tt.token)
			require.Error(t, err)
		})
	}
}
