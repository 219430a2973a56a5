//go:build !linux

package vm

func Default() Provider { return Portable{} }
