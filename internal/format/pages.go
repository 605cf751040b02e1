package format

// PagesFor converts a byte delta to a page count for region growth.
//
// The conversion is (delta >> PageShift) + 1: truncating division plus one
// whole page. The extra page guarantees the grown region always covers
// delta bytes, including deltas that are not page-aligned, at the cost of
// over-growing aligned requests by one page.
func PagesFor(delta uint64) uint64 {
	return (delta >> PageShift) + 1
}

// PageCount returns the number of whole pages covering size bytes.
func PageCount(size uint64) uint64 {
	return (size + PageSize - 1) >> PageShift
}
