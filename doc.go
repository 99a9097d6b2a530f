// Package auth implements anonymous sign-in with rotating refresh tokens.
//
// Token lifecycle:
//   - Auther orchestrates anonymous sign-in, token issuance, and refresh
//     rotation. Every refresh token is bound to a persisted RefreshToken
//     record and can be redeemed exactly once; redeeming a revoked record is
//     treated as theft and revokes every outstanding record for that user
//     before the call fails.
//   - TokenService signs and verifies HS256 JWTs carrying a token kind
//     (session, refresh, email-signin). Users may carry their own signing
//     secret; rotating it invalidates all previously issued tokens for that
//     user without touching the refresh token table.
//
// Provisioning:
//   - First-time anonymous sign-ins create a user named anonymous@{n}, where
//     n comes from a monotonic accounts-created counter. The avatar is a
//     deterministic function of the same seed so retries converge on the
//     same profile.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     sign-in, refresh, and reuse-detection events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package auth
