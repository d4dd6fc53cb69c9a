// Package query builds the SQL used to page through the asset index.
//
// Every function here is pure: it returns query text and ordered
// arguments and never touches a database. Filter values are checked
// against a closed vocabulary, and nothing caller-supplied is ever
// spliced into the SQL text.
//
// # Ordering
//
// Listings are ordered newest first by (dt DESC, id DESC), with rows
// that have no dt after all dated rows. CursorFilter continues that order
// from a (dt, id) seek position, including the jump from the last dated
// row into the undated tail.
//
// # Albums
//
// AlbumFilter matches one album, or an album and everything below it.
// Album names are escaped for LIKE, so "100%_complete" never matches
// "100X_complete".
package query
