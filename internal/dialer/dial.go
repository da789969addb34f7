package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/tinyreq/tinyreq/internal/model"
)

// Connect resolves cfg.Host honoring the preferred address family first,
// opens a TCP connection within the connect budget, and performs the TLS
// handshake for https within the same budget.
func Connect(cfg Config) (*Stream, error) {
	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	conn, err := dialFirst(ctx, cfg)
	if err != nil {
		return nil, model.ClassifyConnect("dial "+net.JoinHostPort(cfg.Host, cfg.Port), err)
	}

	if cfg.Scheme == "https" {
		config := cfg.TLS.Clone()
		if config == nil {
			config = &tls.Config{}
		}
		if config.ServerName == "" {
			config.ServerName = cfg.Host
		}
		c := tls.Client(conn, config)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, model.ClassifyConnect("tls handshake with "+cfg.Host, err)
		}
		conn = c
	}
	return &Stream{conn: conn}, nil
}

// dialFirst tries each resolved address in preference order until one
// connects. IP literals skip resolution.
func dialFirst(ctx context.Context, cfg Config) (net.Conn, error) {
	var d net.Dialer
	if ip := net.ParseIP(cfg.Host); ip != nil {
		return d.DialContext(ctx, "tcp", net.JoinHostPort(cfg.Host, cfg.Port))
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", cfg.Host)
	if err != nil {
		return nil, err
	}
	var firstErr error
	for _, ip := range orderByFamily(ips, cfg.Family) {
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), cfg.Port))
		if err == nil {
			return conn, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if firstErr == nil {
		firstErr = &net.DNSError{Err: "no addresses", Name: cfg.Host}
	}
	return nil, firstErr
}

// orderByFamily puts addresses of the preferred family first, standard
// dual-stack fallback keeping the rest as second choices.
func orderByFamily(ips []net.IP, fam model.IPFamily) []net.IP {
	preferred := make([]net.IP, 0, len(ips))
	var fallback []net.IP
	for _, ip := range ips {
		v4 := ip.To4() != nil
		if (fam == model.IPv4) == v4 {
			preferred = append(preferred, ip)
		} else {
			fallback = append(fallback, ip)
		}
	}
	return append(preferred, fallback...)
}
