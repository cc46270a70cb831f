//go:build darwin

package ipc

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func socketPeerUID(raw syscall.RawConn) (uint32, error) {
	var uid uint32
	var sockErr error
	err := raw.Control(func(fd uintptr) {
		cred, err := unix.GetsockoptXucred(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
		if err != nil {
			sockErr = err
			return
		}
		uid = cred.Uid
	})
	if err != nil {
		return 0, err
	}
	return uid, sockErr
}
