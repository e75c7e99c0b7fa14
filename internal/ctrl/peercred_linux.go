//go:build linux

package ctrl

import (
	"net"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// peerFields resolves SO_PEERCRED so session logs carry the identity of
// the client on the other end of the socket.
func peerFields(conn net.Conn) []zap.Field {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return nil
	}

	var cred *unix.Ucred
	var credErr error

	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil || credErr != nil {
		return nil
	}

	return []zap.Field{
		zap.Int32("peer_pid", cred.Pid),
		zap.Uint32("peer_uid", cred.Uid),
	}
}
