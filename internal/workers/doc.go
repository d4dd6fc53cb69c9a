/*
Package workers sizes and runs small bounded worker pools.

Worker counts are derived from GOMAXPROCS rather than runtime.NumCPU so that
container CPU limits are respected. ASSET_INDEX_WORKERS overrides the computed
value.

The k-way merge provider uses Run to prime the first page of every album
source concurrently; SQLite in WAL mode serves those readers in parallel.

	err := workers.Run(len(sources), workers.ForIO(8), func(i int) error {
	    _, _, err := sources[i].Peek(ctx)
	    return err
	})
*/
package workers
