// Package spectool implements driven.DocumentSource against the remote
// specification tool's JSON API, plus an offline source reading the same
// JSON from a directory.
//
// # Authentication
//
// Two modes are supported:
//
//   - Login: POST api/spectool/user/login with a username and password;
//     the returned .ASPXAUTH cookie authenticates every later request.
//   - Token: a static bearer token sent through golang.org/x/oauth2.
//
// # Rate Limiting
//
// Every request waits on a token bucket (golang.org/x/time/rate) so a
// build never floods the service.
package spectool
