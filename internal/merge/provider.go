package merge

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/query"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/workers"
)

// maxPrimeWorkers bounds how many sources fetch their first page at once.
const maxPrimeWorkers = 8

// Before reports whether a is listed before b: later dt first, undated
// last, then larger id first.
func Before(a, b assets.Asset) bool {
	switch {
	case a.DT != nil && b.DT == nil:
		return true
	case a.DT == nil && b.DT != nil:
		return false
	case a.DT != nil && *a.DT != *b.DT:
		return *a.DT > *b.DT
	}
	return a.ID > b.ID
}

type head struct {
	asset  assets.Asset
	source int
}

// headHeap is a max-heap in listing order; ties go to the lower source.
type headHeap []head

func (h headHeap) Len() int { return len(h) }

func (h headHeap) Less(i, j int) bool {
	if Before(h[i].asset, h[j].asset) {
		return true
	}
	if Before(h[j].asset, h[i].asset) {
		return false
	}
	return h[i].source < h[j].source
}

func (h headHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *headHeap) Push(x any) { *h = append(*h, x.(head)) }

func (h *headHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Provider merges several iterators into one listing.
type Provider struct {
	sources []*Iterator
	heads   headHeap
	primed  bool
}

// NewProvider merges sources. Each source must already be in listing order.
func NewProvider(sources ...*Iterator) *Provider {
	metrics.MergeSources.Observe(float64(len(sources)))
	return &Provider{sources: sources}
}

// Sources returns the number of merged sources.
func (p *Provider) Sources() int {
	return len(p.sources)
}

// prime loads the first head of every source. First pages are fetched in
// parallel; heads are pushed in source order so ties stay deterministic.
func (p *Provider) prime(ctx context.Context) error {
	if p.primed {
		return nil
	}

	firsts := make([]head, len(p.sources))
	found := make([]bool, len(p.sources))
	n := workers.ForIO(maxPrimeWorkers)
	err := workers.Run(len(p.sources), n, func(i int) error {
		a, ok, err := p.sources[i].Peek(ctx)
		if err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		firsts[i], found[i] = head{asset: a, source: i}, ok
		return nil
	})
	if err != nil {
		return err
	}

	p.heads = p.heads[:0]
	for i, ok := range found {
		if ok {
			p.heads = append(p.heads, firsts[i])
		}
	}
	heap.Init(&p.heads)
	p.primed = true

	logging.Debug("Merge primed %d of %d sources", len(p.heads), len(p.sources))
	return nil
}

// Next returns the next asset of the merged listing. ok is false when
// every source is exhausted.
func (p *Provider) Next(ctx context.Context) (assets.Asset, bool, error) {
	if err := p.prime(ctx); err != nil {
		return assets.Asset{}, false, err
	}
	if p.heads.Len() == 0 {
		return assets.Asset{}, false, nil
	}

	top := heap.Pop(&p.heads).(head)
	src := p.sources[top.source]
	if _, _, err := src.Next(ctx); err != nil {
		return assets.Asset{}, false, err
	}

	next, ok, err := src.Peek(ctx)
	if err != nil {
		// Put the head back so a retry does not lose this source.
		heap.Push(&p.heads, top)
		return assets.Asset{}, false, err
	}
	if ok {
		heap.Push(&p.heads, head{asset: next, source: top.source})
	}

	metrics.MergeItemsTotal.Inc()
	return top.asset, true, nil
}

// FetchPage returns up to n further assets. A short result means the
// listing is exhausted.
func (p *Provider) FetchPage(ctx context.Context, n int) ([]assets.Asset, error) {
	out := make([]assets.Asset, 0, n)
	for len(out) < n {
		a, ok, err := p.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

// HasMore reports whether Next would return an asset.
func (p *Provider) HasMore(ctx context.Context) (bool, error) {
	if err := p.prime(ctx); err != nil {
		return false, err
	}
	return p.heads.Len() > 0, nil
}

// Reset rewinds every source; the next call starts from the top.
func (p *Provider) Reset() {
	for _, s := range p.sources {
		s.Reset()
	}
	p.heads = p.heads[:0]
	p.primed = false
}

// AlbumSource is what NewAllPhotosProvider needs from the repository.
type AlbumSource interface {
	PageFetcher
	ListAlbums(ctx context.Context) ([]assets.Album, error)
}

// NewAllPhotosProvider builds the merged "all photos" listing. When
// albumPaths is nil every album is discovered through ListAlbums. Each
// album becomes one exactly-scoped source; with zero or one album a single
// unscoped source is used instead.
func NewAllPhotosProvider(ctx context.Context, repo AlbumSource, albumPaths []string, pageSize int, filterHidden bool, filter query.FilterParams) (*Provider, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if albumPaths == nil {
		albums, err := repo.ListAlbums(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list albums: %w", err)
		}
		albumPaths = make([]string, len(albums))
		for i, a := range albums {
			albumPaths[i] = a.Path
		}
	}

	base := assets.PageRequest{FilterHidden: filterHidden, Filter: filter}

	if len(albumPaths) <= 1 {
		logging.Debug("All-photos listing uses a single unscoped source")
		return NewProvider(NewIterator(repo, base, pageSize)), nil
	}

	sources := make([]*Iterator, len(albumPaths))
	for i, path := range albumPaths {
		path := path
		req := base
		req.AlbumPath = &path
		sources[i] = NewIterator(repo, req, pageSize)
	}

	logging.Debug("All-photos listing merges %d album sources", len(sources))
	return NewProvider(sources...), nil
}
