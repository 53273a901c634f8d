//go:build windows

package jit

import (
	"fmt"
	"unsafe"
)

// Windows has no dlopen/dlsym pair accessible the same way, and this repo has no
// LoadLibrary-based fallback wired in yet. Fail clearly instead of pretending to support
// a platform nothing here has been exercised on.
func assembleAndLink(cc, asmPath, soPath string) error {
	return fmt.Errorf("jit: unsupported platform windows (no dlopen-equivalent wired in)")
}

func loadModule(soPath string) (unsafe.Pointer, error) {
	return nil, fmt.Errorf("jit: unsupported platform windows (no dlopen-equivalent wired in)")
}

func callExportedFunc(handle unsafe.Pointer, name string) (float64, error) {
	return 0, fmt.Errorf("jit: unsupported platform windows (no dlopen-equivalent wired in)")
}

func closeModule(handle unsafe.Pointer) {}
