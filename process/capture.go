package process

import "github.com/pavanmanishd/vmarena"

// Stream identifies one of the child's standard streams.
type Stream int

const (
	Stdin Stream = iota
	Stdout
	Stderr

	StreamCount = 3
)

func (s Stream) String() string {
	switch s {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	}
	return "invalid"
}

// Capture is the set of streams redirected through a pipe instead of being
// inherited from the parent. Naming a stream outside the three standard
// ones is fatal.
type Capture struct {
	bits [1]uint64
}

// CaptureOutput captures stdout and stderr.
var CaptureOutput = NewCapture(Stdout, Stderr)

// NewCapture returns a set holding streams.
func NewCapture(streams ...Stream) Capture {
	var c Capture
	for _, s := range streams {
		c.Set(s, true)
	}
	return c
}

// Set adds or removes s.
func (c *Capture) Set(s Stream, on bool) {
	vmarena.FlagSet(c.bits[:], StreamCount, int(s), on)
}

// Has reports whether s is captured.
func (c Capture) Has(s Stream) bool {
	return vmarena.FlagGet(c.bits[:], StreamCount, int(s))
}

// Empty reports whether no stream is captured.
func (c Capture) Empty() bool {
	return c.bits[0] == 0
}
