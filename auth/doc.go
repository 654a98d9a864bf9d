// Package auth manages user accounts and the tokens that authenticate them.
//
// Passwords are hashed with bcrypt. A successful login issues a pair of
// HS256 JWTs signed with separate secrets: a short-lived access token and a
// longer-lived refresh token. The latest refresh token is stored on the user,
// so refreshing rotates it and logging out revokes it. Middleware reads the
// access token from the accessToken cookie or an Authorization: Bearer header
// and puts the user in the request context.
package auth
