package auth

import (
	"context"

	"rundown/internal/domain/models"
)

// JWTVerifier defines the interface for JWT token verification.
// This abstraction allows for different JWT verification implementations
// while keeping the middleware agnostic to the verification details.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.AccessClaims, error)

	// Close releases any resources held by the verifier (e.g., HTTP connections for JWKS).
	// Should be called when the verifier is no longer needed.
	Close() error
}

// Authorizer answers whether an actor may read or write a rundown. The
// tenancy model (teams, sharing links, subscriptions) lives entirely in
// the external team service; this core treats the check as a precondition.
type Authorizer interface {
	// CanRead returns nil, domain.ErrForbidden, or a transport error.
	CanRead(ctx context.Context, actorID, rundownID string) error

	// CanWrite returns nil, domain.ErrForbidden, or a transport error.
	CanWrite(ctx context.Context, actorID, rundownID string) error
}
