package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-sync/internal/config"
)

func TestTokenCmd(t *testing.T) {
	t.Setenv(config.EnvName("auth.secret"), "cli-secret")

	out, err := execute(t, "token", "user-7", "--ttl", "1h")
	require.NoError(t, err)

	auth, err := api.NewAuthenticator("cli-secret")
	require.NoError(t, err)
	sub, err := auth.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-7", sub)
	assert.Equal(t, time.Hour, tokenTTL)
}

func TestTokenCmd_NoSecret(t *testing.T) {
	_, err := execute(t, "token", "user-7")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret is not configured")
}
