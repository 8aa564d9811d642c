//go:build !unix

package netio

import "syscall"

// controlReuseAddr is a no-op outside unix-like platforms: SO_REUSEADDR is
// only set by the unix build (sockopts_unix.go).
func controlReuseAddr(_ string, _ string, _ syscall.RawConn) error {
	return nil
}
