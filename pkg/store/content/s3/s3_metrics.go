package s3

import "time"

// S3Metrics receives one observation per store call and the byte counts of
// reads and writes. A nil S3Metrics in the store config disables collection.
type S3Metrics interface {
	// ObserveOperation is called with the store method name (ReadAt, WriteAt,
	// Size, Truncate, Delete, List) and its result
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes is called with direction "read" or "write"
	RecordBytes(direction string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                    {}
