/*
Package filesystem provides resilient filesystem operations for the index
database files.

Stat and remove calls are retried with exponential backoff when they fail with
ESTALE (stale NFS handle) or EBUSY, which is common when a photo library lives
on a network share. Any other error is returned immediately.

The recovery service uses RemoveAllBestEffort to delete the primary database
file and its -wal/-shm side files: each failure is logged and reported back,
and the remaining files are still attempted.

	failed := filesystem.RemoveAllBestEffort(
	    []string{dbPath, dbPath + "-wal", dbPath + "-shm"},
	    filesystem.DefaultRetryConfig(),
	)
*/
package filesystem
