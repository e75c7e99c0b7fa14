package pinner

// Region records one contiguous pinned address range. PageCount and
// Handles are fixed at pin time; len(Handles) == PageCount for the
// region's entire lifetime.
type Region struct {
	StartPage uint64
	PageCount uint64
	Handles   []Handle
}
