// Package cursor turns a (dt, id) listing position into an opaque,
// URL-safe token and back.
//
// Tokens are base64url-encoded JSON objects with exactly the keys "dt"
// and "id"; dt may be null for positions in the undated tail of a
// listing. Callers must treat tokens as opaque. A token that fails to
// decode should restart the listing from the top rather than surface an
// error to the end user.
package cursor
