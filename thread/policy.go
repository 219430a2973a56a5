package thread

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena"
)

// Policy selects how many worker threads a bootstrap run uses.
type Policy int

const (
	// SingleThreaded runs the entry point on the calling thread.
	SingleThreaded Policy = iota
	// SpawnSingleThread runs the entry point on one worker thread.
	SpawnSingleThread
	// SaturateLogicalCores starts one worker per logical core.
	SaturateLogicalCores
	// SaturatePhysicalCores starts one worker per physical core.
	SaturatePhysicalCores
)

var policyNames = [...]string{
	SingleThreaded:        "single-threaded",
	SpawnSingleThread:     "spawn-single",
	SaturateLogicalCores:  "logical-cores",
	SaturatePhysicalCores: "physical-cores",
}

// ParsePolicy parses the text form of a policy.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if s == name {
			return Policy(p), nil
		}
	}
	return 0, fmt.Errorf("unknown spawn policy %q (want one of %v)", s, policyNames)
}

func (p Policy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("Policy(%d)", int(p))
	}
	return policyNames[p]
}

// Set implements pflag.Value.
func (p *Policy) Set(s string) error {
	v, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Type implements pflag.Value.
func (p *Policy) Type() string { return "policy" }

// Decode implements envconfig.Decoder.
func (p *Policy) Decode(s string) error { return p.Set(s) }

// CoreCounter reports the machine's core counts.
type CoreCounter interface {
	LogicalCores() int
	PhysicalCores() int
}

// SystemCores counts the cores of the running machine. Physical cores fall
// back to the logical count when they cannot be detected.
type SystemCores struct {
	Logger *zap.Logger
}

func (c SystemCores) LogicalCores() int { return runtime.NumCPU() }

func (c SystemCores) PhysicalCores() int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		logical := c.LogicalCores()
		if c.Logger != nil {
			c.Logger.Warn("physical core count unavailable, using logical cores",
				zap.Int("logical", logical), zap.Error(err))
		}
		return logical
	}
	return n
}

// ResolveWorkers returns the number of worker threads p asks for. The
// saturate policies always ask for at least one worker, even when c reports
// no cores.
func ResolveWorkers(p Policy, c CoreCounter) int {
	switch p {
	case SingleThreaded:
		return 0
	case SpawnSingleThread:
		return 1
	case SaturateLogicalCores:
		return max(1, c.LogicalCores())
	case SaturatePhysicalCores:
		return max(1, c.PhysicalCores())
	}
	vmarena.Check(false, "invalid spawn policy", zap.Int("policy", int(p)))
	return 0
}
