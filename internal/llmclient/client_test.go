package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithNilSecretReturnsNoCredentialClient(t *testing.T) {
	client, err := New(context.Background(), nil)
	require.NoError(t, err)

	_, genErr := client.Generate(context.Background(), "explain this function")
	require.ErrorIs(t, genErr, ErrNoCredential)
}
