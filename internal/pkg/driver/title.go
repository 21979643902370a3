package driver

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// renameSelf overwrites the driver's own argv[0] memory in place with
// title, truncating or padding with NULs as needed, and sets PR_SET_NAME so
// /proc/<pid>/comm matches too. This mirrors common.c's setproctitle, which
// overwrites the argv block glibc and the kernel both read process titles
// from, rather than replacing os.Args (which wouldn't be visible to ps(1)).
func renameSelf(title string) {
	if len(os.Args) == 0 {
		return
	}

	argv0 := os.Args[0]
	buf := unsafe.Slice(unsafe.StringData(argv0), len(argv0))

	n := copy(buf, title)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}

	comm := title
	if len(comm) > 15 {
		comm = comm[:15]
	}
	commPtr, err := unix.BytePtrFromString(comm)
	if err != nil {
		return
	}
	unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(commPtr)), 0, 0, 0)
}
