package netutil

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TrustedProxies is the set of peers whose forwarding headers are honored.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts a comma separated list of IPs and CIDRs.
// An empty list trusts nobody and yields nil.
func ParseTrustedProxies(raw string) (*TrustedProxies, error) {
	var nets []*net.IPNet
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, cidr, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, err
			}
			nets = append(nets, cidr)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, &net.ParseError{Type: "IP address", Text: entry}
		}
		bits := 128
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	if len(nets) == 0 {
		return nil, nil
	}
	return &TrustedProxies{nets: nets}, nil
}

// Contains reports whether ip belongs to a trusted range.
func (t *TrustedProxies) Contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the caller address for the request.
func ClientIP(c *fiber.Ctx, trusted *TrustedProxies) string {
	return ResolveClientIP(c.Context().RemoteIP(), c.Get(fiber.HeaderXForwardedFor), c.Get("X-Real-IP"), trusted)
}

// ResolveClientIP trusts forwarding headers only when the direct peer is a
// trusted proxy. X-Forwarded-For is walked from the right and the first
// untrusted hop wins.
func ResolveClientIP(remote net.IP, forwardedFor, realIP string, trusted *TrustedProxies) string {
	if remote == nil {
		return ""
	}
	if !trusted.Contains(remote) {
		return remote.String()
	}

	if chain := parseForwardedFor(forwardedFor); len(chain) > 0 {
		chain = append(chain, remote)
		for i := len(chain) - 1; i >= 0; i-- {
			if !trusted.Contains(chain[i]) {
				return chain[i].String()
			}
		}
		return chain[0].String()
	}

	if ip := net.ParseIP(strings.TrimSpace(realIP)); ip != nil {
		return ip.String()
	}
	return remote.String()
}

func parseForwardedFor(raw string) []net.IP {
	parts := strings.Split(raw, ",")
	out := make([]net.IP, 0, len(parts))
	for _, part := range parts {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}
