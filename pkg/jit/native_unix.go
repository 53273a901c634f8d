//go:build !windows

package jit

/*
#include <dlfcn.h>
#include <stdlib.h>

typedef double (*niladic_double_fn)(void);

static double call_niladic_double(void *sym) {
	niladic_double_fn fn = (niladic_double_fn)sym;
	return fn();
}
*/
import "C"

import (
	"fmt"
	"os/exec"
	"unsafe"
)

// assembleAndLink turns one module's backend assembly into a loadable shared object:
// -shared -fPIC instead of a static executable, since this output is dlopen'd rather
// than exec'd.
func assembleAndLink(cc, asmPath, soPath string) error {
	cmd := exec.Command(cc, "-shared", "-fPIC", "-o", soPath, asmPath, "-lm")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w\noutput:\n%s", cc, err, out)
	}
	return nil
}

// loadModule dlopens a linked shared object with RTLD_GLOBAL, so any function it defines
// becomes visible to the dynamic linker when a later module is itself dlopen'd — without
// this, a later module's call to an earlier def would be left unresolved at load time.
func loadModule(soPath string) (unsafe.Pointer, error) {
	cPath := C.CString(soPath)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_GLOBAL)
	if handle == nil {
		return nil, fmt.Errorf("dlopen %s: %s", soPath, C.GoString(C.dlerror()))
	}
	return handle, nil
}

// callExportedFunc dlsyms a nullary, double-returning symbol out of an already-loaded
// module and calls it through a cgo trampoline.
func callExportedFunc(handle unsafe.Pointer, name string) (float64, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	sym := C.dlsym(handle, cName)
	if sym == nil {
		return 0, fmt.Errorf("dlsym %s: %s", name, C.GoString(C.dlerror()))
	}
	return float64(C.call_niladic_double(sym)), nil
}

// closeModule dlcloses a handle returned by loadModule. Driver.Close calls this for
// every module it has ever loaded.
func closeModule(handle unsafe.Pointer) {
	C.dlclose(handle)
}
