// Package merge streams assets from several album-scoped listings as one
// listing in (dt DESC, id DESC) order.
//
// An Iterator pages through one source, buffering a page at a time. A
// Provider keeps one pending head per Iterator in a max-heap and always
// emits the largest, so merging n items from k sources costs O(n log k)
// time and O(k * page size) memory regardless of n.
//
// Heads with equal (dt, id) are emitted in source order, lowest index
// first.
//
// Nothing here holds goroutines or connections between calls; a caller
// that loses interest simply drops the Provider.
package merge
