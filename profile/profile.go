package profile

// Profiler configures runtime profiling.
//
// Start is always safely callable: unless the binary was built with the
// [Tag] build tag and Mode names a supported profile, it returns a no-op
// controller.
type Profiler struct {
	Mode  string // profile mode, e.g. "cpu" or "heap"
	Path  string // output directory for profile files
	Quiet bool   // suppress the profiling library's own logging
}

// Start initializes the profiler and returns its stop control.
func (p Profiler) Start() interface{ Stop() } {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p.Mode, p.Path, p.Quiet)
}

type ignore struct{}

func (ignore) Stop() {}
