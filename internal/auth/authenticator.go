// Package auth resolves tenant credentials against the schema model.
package auth

import (
	"errors"

	"github.com/attolytics/attolytics/internal/schema"
)

var (
	ErrUnknownTenant     = errors.New("unknown tenant")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Authenticator is a pure lookup plus constant-time comparison over the
// immutable schema model. It holds no mutable state.
type Authenticator struct {
	schema *schema.Schema
}

func New(s *schema.Schema) *Authenticator {
	return &Authenticator{schema: s}
}

// Authenticate confirms that the supplied credential authorizes writes
// on behalf of the tenant. It returns the resolved tenant on success;
// ErrUnknownTenant when no such tenant exists; ErrInvalidCredential
// when the tenant exists but the credential does not match.
func (a *Authenticator) Authenticate(tenantID, secret string) (*schema.Tenant, error) {
	tenant, ok := a.schema.Tenant(tenantID)
	if !ok {
		return nil, ErrUnknownTenant
	}
	if !tenant.VerifySecret(secret) {
		return nil, ErrInvalidCredential
	}
	return tenant, nil
}
