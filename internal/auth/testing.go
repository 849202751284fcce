package auth

import "context"

// SetClaimsForTest injects seat claims into the context for testing purposes.
func SetClaimsForTest(ctx context.Context, sessionID, player, role string) context.Context {
	return context.WithValue(ctx, claimsKey, &Claims{SessionID: sessionID, Player: player, Role: role})
}
