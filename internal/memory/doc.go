// Package memory keeps the index process inside its container's memory
// budget.
//
// [Configure] derives GOMEMLIMIT from a container limit such as "2GiB",
// reserving part of it for SQLite's page cache and cgo allocations that
// the Go heap accounting never sees. An explicit GOMEMLIMIT in the
// environment always wins.
//
// [Monitor] samples heap usage against that limit and gives batch writers
// a backpressure point: importers call [Monitor.WaitIfPaused] between
// transactions so a large import with micro thumbnails pauses instead of
// getting OOM-killed.
//
//	result := memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
//	for _, batch := range batches {
//	    if err := mon.WaitIfPaused(ctx); err != nil {
//	        return err
//	    }
//	    // write batch
//	}
package memory
