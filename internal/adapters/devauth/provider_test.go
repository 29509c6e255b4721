package devauth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shepherd-church/shepherd/internal/ports"
)

func TestProvider_BeginAndExchange(t *testing.T) {
	p, err := NewProvider(Config{UserID: "dev-1", Email: "dev@example.org", FirstName: "Dev"})
	require.NoError(t, err)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Len(t, state, 24)
	assert.Len(t, nonce, 24)
	assert.True(t, strings.HasSuffix(authURL, "state="+state))

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	require.NoError(t, err)
	assert.Equal(t, "dev-1", id.UserID)
	assert.Equal(t, "Dev", id.FirstName)
	assert.Empty(t, id.Credential)
	assert.WithinDuration(t, time.Now().Add(10*24*time.Hour), id.ExpiresAt, time.Minute)

	assert.NoError(t, p.Revoke(context.Background(), "anything"))
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(Config{Email: "dev@example.org"})
	assert.Error(t, err)
	_, err = NewProvider(Config{UserID: "dev-1"})
	assert.Error(t, err)
}
