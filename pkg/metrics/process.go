package metrics

import "time"

// ProcessMetrics provides observability for the process syscall surface.
//
// If no implementation is provided, a no-op implementation is used.
type ProcessMetrics interface {
	// RecordSyscall records one syscall and its errno name ("" on success).
	RecordSyscall(name string, errno string)

	// RecordThrottleWait records time a syscall spent waiting on the rate limiter.
	RecordThrottleWait(duration time.Duration)

	// SetProcesses reports the number of live processes.
	SetProcesses(count int)
}

// NewNoopProcessMetrics returns a ProcessMetrics that discards everything.
func NewNoopProcessMetrics() ProcessMetrics {
	return noopProcessMetrics{}
}

type noopProcessMetrics struct{}

func (noopProcessMetrics) RecordSyscall(name string, errno string)  {}
func (noopProcessMetrics) RecordThrottleWait(duration time.Duration) {}
func (noopProcessMetrics) SetProcesses(count int)                    {}
