package monitoring

import "time"

// Monitor receives errors and panics for out-of-band reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init installs the process-wide monitor.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	current.CaptureException(err, tags)
}

// CaptureError records an error attributed to a component.
func CaptureError(err error, component string) {
	if err == nil {
		return
	}
	current.CaptureException(err, map[string]string{"component": component})
}

// Recover forwards panics in goroutines to the monitor. Call it with
// defer at the top of the goroutine.
func Recover() {
	current.Recover()
}

// Flush drains buffered events before shutdown.
func Flush(d time.Duration) {
	current.Flush(d)
}
