//go:build !linux

package ctrl

import (
	"net"

	"go.uber.org/zap"
)

func peerFields(_ net.Conn) []zap.Field {
	return nil
}
