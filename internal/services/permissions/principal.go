package permissions

import "context"

// ManagePageTypesAndAttributes allows changing page types and their attributes
const ManagePageTypesAndAttributes = "MANAGE_PAGE_TYPES_AND_ATTRIBUTES"

// Principal is the actor a request is performed on behalf of
type Principal struct {
	ID          string
	IsSuperuser bool
	Permissions []string
}

// Anonymous is the principal of unauthenticated requests
var Anonymous = &Principal{ID: "anonymous"}

type principalKey struct{}

// WithPrincipal returns a context carrying the principal
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal of the request, or Anonymous
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok && p != nil {
		return p
	}
	return Anonymous
}

// toMap converts the principal into CEL input
func (p *Principal) toMap() map[string]interface{} {
	perms := p.Permissions
	if perms == nil {
		perms = []string{}
	}
	return map[string]interface{}{
		"id":           p.ID,
		"is_superuser": p.IsSuperuser,
		"permissions":  perms,
	}
}
