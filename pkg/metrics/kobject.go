package metrics

// KobjectMetrics provides observability for kernel-object handle operations.
//
// Handles receive an implementation through kobject.WithMetrics and pass it on
// to every handle derived from them (Copy, Lookup, child creation). If no
// implementation is provided, a no-op implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewKobjectMetrics()
//	k := kobject.NewFile(dirent, kobject.WithMetrics(m))
//
//	// Without metrics (no-op)
//	k := kobject.NewFile(dirent)
type KobjectMetrics interface {
	// RecordCreated increments the live handle count for a kind.
	//
	// Parameters:
	//   - kind: Kind label (e.g., "file", "window")
	RecordCreated(kind string)

	// RecordDestroyed decrements the live handle count for a kind.
	RecordDestroyed(kind string)

	// RecordOperation records a dispatched operation and its outcome.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "read", "lookup", "size")
	//   - kind: Kind label of the handle
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(operation string, kind string, err error)

	// RecordBytes records bytes moved by read or write.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - kind: Kind label of the handle
	//   - bytes: Number of bytes transferred
	RecordBytes(direction string, kind string, bytes int)
}

// NewNoopKobjectMetrics returns a KobjectMetrics that discards everything.
func NewNoopKobjectMetrics() KobjectMetrics {
	return noopKobjectMetrics{}
}

// noopKobjectMetrics is a no-op implementation of KobjectMetrics with zero overhead.
type noopKobjectMetrics struct{}

func (noopKobjectMetrics) RecordCreated(kind string)                                {}
func (noopKobjectMetrics) RecordDestroyed(kind string)                              {}
func (noopKobjectMetrics) RecordOperation(operation string, kind string, err error) {}
func (noopKobjectMetrics) RecordBytes(direction string, kind string, bytes int)     {}
