package merge

import (
	"context"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/cursor"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/metrics"
)

// DefaultPageSize is the number of rows an Iterator buffers.
const DefaultPageSize = 100

// PageFetcher returns one keyset page of a listing.
type PageFetcher interface {
	GetAssetsPage(ctx context.Context, req assets.PageRequest) ([]assets.Asset, error)
}

// Iterator walks one listing a page at a time.
type Iterator struct {
	src      PageFetcher
	req      assets.PageRequest
	pageSize int

	buf       []assets.Asset
	pos       int
	after     *cursor.Cursor
	exhausted bool
}

// NewIterator returns an iterator over the listing req describes. req.After
// and req.Limit are managed by the iterator.
func NewIterator(src PageFetcher, req assets.PageRequest, pageSize int) *Iterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	req.After = nil
	req.Limit = pageSize
	return &Iterator{src: src, req: req, pageSize: pageSize}
}

func (it *Iterator) fill(ctx context.Context) error {
	if it.pos < len(it.buf) || it.exhausted {
		return nil
	}

	req := it.req
	req.After = it.after
	page, err := it.src.GetAssetsPage(ctx, req)
	if err != nil {
		return err
	}
	metrics.IteratorPageFetches.Inc()

	it.buf, it.pos = page, 0
	if len(page) < it.pageSize {
		it.exhausted = true
	}
	if len(page) > 0 {
		c := page[len(page)-1].Cursor()
		it.after = &c
	}
	return nil
}

// Peek returns the next asset without consuming it. ok is false at the end.
func (it *Iterator) Peek(ctx context.Context) (a assets.Asset, ok bool, err error) {
	if err := it.fill(ctx); err != nil {
		return assets.Asset{}, false, err
	}
	if it.pos >= len(it.buf) {
		return assets.Asset{}, false, nil
	}
	return it.buf[it.pos], true, nil
}

// Next returns the next asset and advances past it.
func (it *Iterator) Next(ctx context.Context) (assets.Asset, bool, error) {
	a, ok, err := it.Peek(ctx)
	if ok {
		it.pos++
	}
	return a, ok, err
}

// HasMore reports whether Next would return an asset.
func (it *Iterator) HasMore(ctx context.Context) (bool, error) {
	_, ok, err := it.Peek(ctx)
	return ok, err
}

// Reset rewinds to the start of the listing.
func (it *Iterator) Reset() {
	it.buf, it.pos = nil, 0
	it.after = nil
	it.exhausted = false
}
