//go:build darwin || linux

package netpool

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// probeIdle reports whether an idle connection still looks usable. A
// zero-timeout poll that signals readability means the peer either closed
// the connection or pushed bytes no request asked for; both make the entry
// worthless, so it is discarded. Inconclusive probes keep the entry — a
// truly dead connection still fails on first use and the engine retries.
func probeIdle(conn net.Conn) bool {
	sc := rawConn(conn)
	if sc == nil {
		return true
	}
	usable := true
	err := sc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, perr := unix.Poll(fds, 0)
		if perr != nil {
			return
		}
		if n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			usable = false
		}
	})
	if err != nil {
		return true
	}
	return usable
}

func rawConn(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// *tls.Conn wraps the real socket
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if sc, err := c.SyscallConn(); err == nil {
			return sc
		}
	}
	return nil
}
