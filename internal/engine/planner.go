package engine

// Plan splits [0, totalSize) into near-equal inclusive ranges. The first
// totalSize%threads ranges are one byte longer than the rest. A zero size
// yields no ranges; more threads than bytes yields one range per byte.
// Callers must reject threads < 1 with ValidateThreads first.
func Plan(totalSize int64, threads int) []ChunkRange {
	if threads < 1 {
		panic("engine: Plan called with threads < 1")
	}
	if totalSize <= 0 {
		return []ChunkRange{}
	}
	n := int64(threads)
	if n > totalSize {
		n = totalSize
	}
	base := totalSize / n
	remainder := totalSize % n
	ranges := make([]ChunkRange, 0, n)
	var start int64
	for i := int64(0); i < n; i++ {
		size := base
		if i < remainder {
			size++
		}
		ranges = append(ranges, ChunkRange{
			Index: int(i),
			Start: start,
			End:   start + size - 1,
		})
		start += size
	}
	return ranges
}

func ValidateThreads(threads int) error {
	if threads < 1 {
		return &PlanningError{Err: ErrInvalidThreads}
	}
	return nil
}
