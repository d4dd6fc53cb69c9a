// Package assets is the asset index of a photo library: the one place
// scanner output is written to and every listing is read from.
//
// The index lives in <library>/.iPhoto/global_index.db. Open creates it
// on first use, migrates files written by older versions, and repairs a
// damaged file before returning, so callers only ever see a working
// (possibly emptier) index.
//
// # Writes
//
// AppendRows and UpsertRow replace rows by rel and never delete anything
// else, so a partial rescan cannot drop rows it did not see. RemoveRows
// is the explicit deletion path; WriteRows replaces the whole index.
// Derived columns (album path, year and month, aspect ratio, media type,
// id) are filled in on write when the scanner leaves them empty.
//
// # Reads
//
// Listings are ordered newest first by (dt DESC, id DESC), with undated
// rows last, and paged by keyset:
//
//	page, err := repo.FetchByCursor(ctx, "", assets.PageRequest{Limit: 200})
//	for err == nil && page.HasMore {
//		page, err = repo.FetchByCursor(ctx, page.NextCursor, assets.PageRequest{Limit: 200})
//	}
//
// # Transactions
//
// Transaction batches several calls into one commit. Calls made with the
// ctx handed to fn join the batch, and a failure in any of them rolls the
// whole batch back, even if the caller ignores that failure.
package assets
