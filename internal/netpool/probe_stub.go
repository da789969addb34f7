//go:build !darwin && !linux

package netpool

import "net"

// Platforms without a cheap readability poll keep every idle entry; stale
// connections fall back to lazy detection on first use.
func probeIdle(net.Conn) bool { return true }
