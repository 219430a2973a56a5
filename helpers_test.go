package vmarena

import (
	"os"
	"syscall"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pavanmanishd/vmarena/vm"
)

var pageSize = uint64(os.Getpagesize())

// recordingProvider counts provider calls and can be told to fail them.
type recordingProvider struct {
	vm.Provider
	reserves    int
	commits     []int
	unreserves  int
	failReserve bool
	failCommit  bool
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{Provider: vm.Default()}
}

func (p *recordingProvider) Reserve(size uintptr, prot vm.Protection, flags vm.MapFlags) ([]byte, error) {
	p.reserves++
	if p.failReserve {
		return nil, &vm.Error{Kind: vm.ErrReserve, Size: size, Err: syscall.ENOMEM}
	}
	return p.Provider.Reserve(size, prot, flags)
}

func (p *recordingProvider) Commit(region []byte, prot vm.Protection, lock bool) error {
	if p.failCommit {
		return &vm.Error{Kind: vm.ErrCommit, Size: uintptr(len(region)), Err: syscall.EPERM}
	}
	p.commits = append(p.commits, len(region))
	return p.Provider.Commit(region, prot, lock)
}

func (p *recordingProvider) Unreserve(region []byte) error {
	p.unreserves++
	return p.Provider.Unreserve(region)
}

// smallCreation keeps reservations small so tests do not depend on a large
// address space.
func smallCreation(count int) Creation {
	return Creation{
		ReservedSize: 64 * pageSize,
		Granularity:  pageSize,
		InitialSize:  pageSize,
		Count:        count,
	}
}

func mustCreate(t *testing.T, c Creation) *Batch {
	t.Helper()
	b, err := Create(c)
	if err != nil {
		t.Fatalf("Create(%+v) error = %v", c, err)
	}
	t.Cleanup(func() {
		if b.region != nil {
			if err := b.Destroy(); err != nil {
				t.Errorf("Destroy() error = %v", err)
			}
		}
	})
	return b
}

// expectFatal runs fn with fatal diagnostics turned into panics and fails
// the test if fn returns normally.
func expectFatal(t *testing.T, fn func()) {
	t.Helper()
	prev := SetLogger(zap.NewNop().WithOptions(zap.WithFatalHook(zapcore.WriteThenPanic)))
	defer SetLogger(prev)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected a fatal diagnostic")
		}
	}()
	fn()
}
