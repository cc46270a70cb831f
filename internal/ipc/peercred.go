package ipc

import (
	"errors"
	"net"
	"os"
)

// sameUser reports whether the process on the other end of a unix socket
// runs as the current user. Other connections carry no credentials and are
// accepted.
func sameUser(conn net.Conn) (bool, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return true, nil
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return false, err
	}
	uid, err := socketPeerUID(raw)
	if errors.Is(err, errors.ErrUnsupported) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return uid == uint32(os.Getuid()), nil
}
