// Package auth decides which profile a request acts as.
//
// Two modes are supported:
//   - "none": every request acts as the local profile (DefaultUserID)
//   - "local": profiles log in with a password; browsers get a session
//     cookie and API clients send a bearer token
//
// Set AUTH_MODE to choose:
//
//	AUTH_MODE=none   # default
//	AUTH_MODE=local
//
// Handlers read the acting profile with GetUserID.
package auth
