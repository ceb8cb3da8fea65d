package permissions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// SuperuserMarker grants every permission when listed for a token
const SuperuserMarker = "*"

// TokenAuthenticator maps static bearer tokens to principals
type TokenAuthenticator struct {
	principals map[string]*Principal
}

// NewTokenAuthenticator builds principals from a token -> permissions map
func NewTokenAuthenticator(tokens map[string][]string) *TokenAuthenticator {
	principals := make(map[string]*Principal, len(tokens))
	for token, perms := range tokens {
		p := &Principal{ID: tokenID(token)}
		for _, perm := range perms {
			if perm == SuperuserMarker {
				p.IsSuperuser = true
				continue
			}
			p.Permissions = append(p.Permissions, perm)
		}
		principals[token] = p
	}
	return &TokenAuthenticator{principals: principals}
}

// Authenticate returns the principal for a token, or Anonymous
func (a *TokenAuthenticator) Authenticate(token string) *Principal {
	if p, ok := a.principals[token]; ok {
		return p
	}
	return Anonymous
}

// UnaryServerInterceptor attaches the principal named by the
// "authorization: Bearer <token>" metadata to the request context.
func (a *TokenAuthenticator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(WithPrincipal(ctx, a.Authenticate(bearerToken(ctx))), req)
	}
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		scheme, token, found := strings.Cut(v, " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// tokenID derives a loggable principal ID from a token
func tokenID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:])[:12]
}
