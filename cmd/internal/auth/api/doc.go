// Package authapi exposes the credential and session operations over HTTP.
//
// Every response uses a single JSON envelope with statusCode, data, message
// and success fields. Tokens travel both in the response body and as
// HttpOnly cookies; protected routes accept the access token from the
// accessToken cookie first, then from the Authorization header.
package authapi
