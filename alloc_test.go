package vmarena

import (
	"testing"
	"unsafe"
)

type testStruct struct {
	a int64
	b int32
	c int16
	d int8
}

func TestAlloc(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	ptr := Alloc[int](a)
	if ptr == nil {
		t.Fatal("Alloc[int] returned nil")
	}
	if *ptr != 0 {
		t.Errorf("Alloc[int] value = %d, want 0 (zeroed)", *ptr)
	}

	s := Alloc[testStruct](a)
	if s.a != 0 || s.b != 0 || s.c != 0 || s.d != 0 {
		t.Errorf("Alloc[testStruct] not properly zeroed: %+v", *s)
	}
	if uintptr(unsafe.Pointer(s))%unsafe.Alignof(*s) != 0 {
		t.Error("Alloc[testStruct] misaligned")
	}

	*ptr = 42
	s.a = 100
	if *ptr != 42 || s.a != 100 {
		t.Error("Could not write to allocated memory")
	}
}

func TestAllocZeroesReusedMemory(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	p := Alloc[int64](a)
	*p = -1
	a.ResetToStart()

	if u := AllocUninitialized[int64](a); *u != -1 {
		t.Errorf("AllocUninitialized after reset = %d, want stale -1", *u)
	}
	a.ResetToStart()
	if z := Alloc[int64](a); *z != 0 {
		t.Errorf("Alloc after reset = %d, want 0", *z)
	}
}

func TestAllocSlice(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"normal", 10, 10},
		{"zero", 0, 0},
		{"negative", -1, 0},
		{"large", 1000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AllocSlice[int32](a, tt.n)
			if len(s) != tt.want {
				t.Errorf("AllocSlice[int32](%d) length = %d, want %d", tt.n, len(s), tt.want)
			}
			if tt.want == 0 && s != nil {
				t.Errorf("AllocSlice[int32](%d) = %v, want nil", tt.n, s)
			}
			for i := range s {
				s[i] = int32(i)
			}
			for i := range s {
				if s[i] != int32(i) {
					t.Fatalf("s[%d] = %d, want %d", i, s[i], i)
				}
			}
		})
	}
}

func TestAllocSliceZeroed(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	dirty := AllocSlice[uint64](a, 32)
	for i := range dirty {
		dirty[i] = ^uint64(0)
	}
	a.ResetToStart()

	s := AllocSliceZeroed[uint64](a, 32)
	for i, v := range s {
		if v != 0 {
			t.Fatalf("s[%d] = %d, want 0", i, v)
		}
	}
}

func TestDuplicateString(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	b := DuplicateString(a, "buster", true)
	if string(b) != "buster" {
		t.Errorf("DuplicateString = %q, want %q", b, "buster")
	}
	if term := a.Since(a.Position() - 1); term[0] != 0 {
		t.Errorf("terminator = %d, want 0", term[0])
	}

	plain := DuplicateString(a, "x", false)
	if string(plain) != "x" {
		t.Errorf("DuplicateString = %q, want %q", plain, "x")
	}
	if empty := DuplicateString(a, "", false); len(empty) != 0 {
		t.Errorf("DuplicateString(\"\") length = %d, want 0", len(empty))
	}
}

func TestJoinStrings(t *testing.T) {
	a := mustCreate(t, smallCreation(1)).Arena(0)

	before := a.Position()
	b := JoinStrings(a, []string{"cc", " ", "-o", " ", "main"}, true)
	if string(b) != "cc -o main" {
		t.Errorf("JoinStrings = %q, want %q", b, "cc -o main")
	}
	if used := a.Position() - before; used != uint64(len("cc -o main")+1) {
		t.Errorf("JoinStrings used %d bytes, want %d", used, len("cc -o main")+1)
	}

	if got := JoinStrings(a, nil, false); len(got) != 0 {
		t.Errorf("JoinStrings(nil) = %q, want empty", got)
	}
}
