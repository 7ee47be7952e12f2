package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attolytics/attolytics/internal/auth"
	"github.com/attolytics/attolytics/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Load([]byte(`
tenants:
  - id: t1
    secret_key: "correct horse"
    tables: [game_events]
tables:
  - name: game_events
    columns:
      - {name: event_type, type: string, required: true}
`))
	require.NoError(t, err)
	return s
}

func TestAuthenticate_Success(t *testing.T) {
	a := auth.New(testSchema(t))

	tenant, err := a.Authenticate("t1", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "t1", tenant.ID)
	assert.True(t, tenant.CanWrite("game_events"))
}

func TestAuthenticate_UnknownTenant(t *testing.T) {
	a := auth.New(testSchema(t))

	_, err := a.Authenticate("nobody", "correct horse")
	assert.ErrorIs(t, err, auth.ErrUnknownTenant)
}

func TestAuthenticate_InvalidCredential(t *testing.T) {
	a := auth.New(testSchema(t))

	// Wrong secret of a different length.
	_, err := a.Authenticate("t1", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	// Wrong secret of the same length; must fail identically.
	_, err = a.Authenticate("t1", "correct HORSE")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	// The two failure kinds stay distinguishable.
	_, unknownErr := a.Authenticate("nobody", "correct horse")
	assert.NotErrorIs(t, unknownErr, auth.ErrInvalidCredential)
}
