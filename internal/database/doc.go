// Package database owns the SQLite file behind an asset index.
//
// A [Manager] opens the file in WAL mode, creates or migrates the assets
// table, and hands out either the pooled handle or the transaction carried
// by the context. [Manager.Transaction] is reentrant: a nested call joins
// the outer transaction, and an inner failure dooms the whole unit.
//
// Corruption is handled in stages. [Recover] first tries REINDEX, then
// salvages whatever rows can still be read, and finally recreates the file
// and reinserts the salvaged rows. [IsCorruption] recognizes the driver
// errors that should trigger it.
package database
