package ocrworker

// lowerThreadPriority is a no-op on Windows; the original engine only ever
// adjusted thread priority on Apple/Unix targets.
func lowerThreadPriority() {}
