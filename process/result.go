package process

// Result is the coarse outcome of a process, a worker or a whole bootstrap
// run. Its integer value is used as the process exit code.
type Result int

const (
	Success Result = iota
	Failed
	FailedTryAgain
	Crash
	NotExistent
	Running
	Unknown
)

var resultNames = [...]string{
	Success:        "success",
	Failed:         "failed",
	FailedTryAgain: "failed-try-again",
	Crash:          "crash",
	NotExistent:    "not-existent",
	Running:        "running",
	Unknown:        "unknown",
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "unknown"
	}
	return resultNames[r]
}

// OK reports whether r is Success.
func (r Result) OK() bool { return r == Success }
