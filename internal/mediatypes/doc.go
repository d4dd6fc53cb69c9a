// Package mediatypes classifies assets into the integer media types stored in
// the index (0 = image, 1 = video).
//
// It is dependency-free so the repository, the query builder and the CLI can
// all import it without cycles.
//
//	t, ok := mediatypes.Classify(asset.Mime, asset.Rel)
//	if ok && t == mediatypes.MediaTypeVideo {
//	    // video or Live Photo motion component
//	}
//
// Classify prefers the MIME type reported by the scanner and falls back to
// the file extension.
package mediatypes
