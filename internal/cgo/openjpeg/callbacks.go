//go:build openjpeg && cgo

package openjpeg

// #include <openjpeg.h>
import "C"

import (
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/luismi/jp2_tiles/pkg/jp2"
)

const streamEOF = ^C.OPJ_SIZE_T(0)

//export goStreamRead
func goStreamRead(buf unsafe.Pointer, n C.OPJ_SIZE_T, user unsafe.Pointer) C.OPJ_SIZE_T {
	f, ok := handleValue(user).(*os.File)
	if !ok || n == 0 {
		return streamEOF
	}
	got, err := f.Read(unsafe.Slice((*byte)(buf), int(n)))
	if got == 0 && err != nil {
		return streamEOF
	}
	return C.OPJ_SIZE_T(got)
}

//export goStreamSkip
func goStreamSkip(n C.OPJ_OFF_T, user unsafe.Pointer) C.OPJ_OFF_T {
	f, ok := handleValue(user).(*os.File)
	if !ok {
		return -1
	}
	if _, err := f.Seek(int64(n), io.SeekCurrent); err != nil {
		return -1
	}
	return n
}

//export goStreamSeek
func goStreamSeek(n C.OPJ_OFF_T, user unsafe.Pointer) C.OPJ_BOOL {
	f, ok := handleValue(user).(*os.File)
	if !ok {
		return C.OPJ_FALSE
	}
	if _, err := f.Seek(int64(n), io.SeekStart); err != nil {
		return C.OPJ_FALSE
	}
	return C.OPJ_TRUE
}

//export goDiagnostic
func goDiagnostic(level C.int, msg *C.char, user unsafe.Pointer) {
	diag, ok := handleValue(user).(jp2.Diagnostics)
	if !ok || diag == nil || msg == nil {
		return
	}
	text := strings.TrimRight(C.GoString(msg), "\n")
	switch level {
	case 0:
		diag.Info(text)
	case 1:
		diag.Warning(text)
	default:
		diag.Error(text)
	}
}
