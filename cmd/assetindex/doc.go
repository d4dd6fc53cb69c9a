// Command assetindex maintains and queries the asset index of a photo
// library.
//
// The index is a SQLite file at <library>/.iPhoto/global_index.db holding
// one row per photo or video, keyed by its library-relative path. Scanners
// feed it JSON lines through import; everything else reads it:
//
//	assetindex import scan.jsonl           upsert rows in batches
//	assetindex import --replace scan.jsonl replace the whole index
//	assetindex remove a.jpg b.mov          delete rows
//	assetindex list --album Trips -n 50    one page, newest first
//	assetindex list --merged --all         all photos, merged per album
//	assetindex albums                      albums with counts
//	assetindex stats                       counts and index size
//	assetindex check --repair              integrity check and rebuild
//	assetindex favorites sync favs.txt     make favorites match a list
//	assetindex live apply pairs.jsonl      replace Live Photo pairings
//	assetindex serve                       HTTP read API and metrics
//
// # Configuration
//
// Every command reads ASSET_INDEX_* variables (optionally from a .env file
// named by --env-file), an optional config file given by --config, and its
// flags, in increasing order of precedence. See package startup for the
// full list.
//
// # Recovery
//
// Opening a damaged index repairs it before the command runs: indexes are
// rebuilt if that is enough, otherwise readable rows are salvaged into a
// fresh file, and as a last resort the file is recreated empty.
package main
