//go:build linux

package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestPosixProtection(t *testing.T) {
	tests := []struct {
		name string
		prot Protection
		want int
	}{
		{"none", NoAccess, unix.PROT_NONE},
		{"read write", ReadWrite, unix.PROT_READ | unix.PROT_WRITE},
		{"all", Protection{Read: true, Write: true, Execute: true}, unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, posixProtection(tt.prot))
		})
	}
}

func TestPosixMapFlags(t *testing.T) {
	assert.Equal(t, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE, posixMapFlags(ArenaMapping))
	assert.Equal(t, unix.MAP_SHARED, posixMapFlags(MapFlags{}))
	assert.Equal(t, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_POPULATE,
		posixMapFlags(MapFlags{Private: true, Anonymous: true, Populate: true}))
}

func TestLargeReservationIsCheap(t *testing.T) {
	p := Unix{}
	region, err := p.Reserve(8<<30, NoAccess, ArenaMapping)
	if err != nil {
		t.Skipf("address space too small for an 8GiB reservation: %v", err)
	}
	assert.NoError(t, p.Commit(region[:p.PageSize()], ReadWrite, false))
	region[0] = 7
	assert.NoError(t, p.Unreserve(region))
}
