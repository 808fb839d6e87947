// Package nsenter implements the single-purpose namespace join of spec.md
// §4.3's CallInNamespace: join a target process's IPC, network, or mount
// namespace, run a function, and return without the join leaking back onto
// the calling goroutine's OS thread.
package nsenter

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

// Kind is a namespace the caller may enter. PID, USER and UTS are
// deliberately absent: entering them from a short-lived worker goroutine
// either panics the runtime (PID) or has host-wide side effects (USER,
// UTS) the framework never wants from a plugin callback.
type Kind string

const (
	IPC Kind = "ipc"
	Net Kind = "net"
	Mnt Kind = "mnt"
)

func (k Kind) valid() bool {
	switch k {
	case IPC, Net, Mnt:
		return true
	default:
		return false
	}
}

func (k Kind) procPath(pid int) string {
	return fmt.Sprintf("/proc/%d/ns/%s", pid, k)
}

// Call joins the namespace of kind `kind` belonging to `pid`, runs fn, and
// returns fn's error. The join happens on a dedicated OS thread that is
// locked for the duration of the call and then discarded (never unlocked
// back into the scheduler's pool), so a failed or partial namespace
// restore can never be observed by unrelated goroutines.
func Call(pid int, kind Kind, fn func() error) error {
	if !kind.valid() {
		return dobbyerr.Newf(dobbyerr.SyscallFailed, "nsenter: namespace kind %q is not joinable", kind)
	}

	result := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		// Deliberately never UnlockOSThread: this goroutine's thread dies
		// with it so the namespace switch below cannot leak to a thread
		// the Go scheduler hands back out.
		result <- enterAndRun(pid, kind, fn)
	}()
	return <-result
}

func enterAndRun(pid int, kind Kind, fn func() error) error {
	target, err := os.Open(kind.procPath(pid))
	if err != nil {
		return dobbyerr.WithPlugin(dobbyerr.SyscallFailed, "", "", fmt.Errorf("open %s: %w", kind.procPath(pid), err))
	}
	defer target.Close()

	self, err := os.Open(kind.procPath(os.Getpid()))
	if err != nil {
		return dobbyerr.WithPlugin(dobbyerr.SyscallFailed, "", "", fmt.Errorf("open own %s namespace: %w", kind, err))
	}
	defer self.Close()

	var nsType int
	switch kind {
	case IPC:
		nsType = unix.CLONE_NEWIPC
	case Net:
		nsType = unix.CLONE_NEWNET
	case Mnt:
		nsType = unix.CLONE_NEWNS
	}

	if err := unix.Setns(int(target.Fd()), nsType); err != nil {
		return dobbyerr.WithPlugin(dobbyerr.SyscallFailed, "", "", fmt.Errorf("setns(%s, pid %d): %w", kind, pid, err))
	}

	callErr := fn()

	// Best-effort restore; the thread is discarded regardless, but a
	// failed restore must not mask fn's own error.
	_ = unix.Setns(int(self.Fd()), nsType)

	return callErr
}
