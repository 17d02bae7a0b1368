package middleware

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// IPAllowlist admits only clients whose address is listed.
type IPAllowlist struct {
	prefixes []netip.Prefix
	logger   zerolog.Logger
}

// NewIPAllowlist parses entries, each an address or a CIDR prefix. An empty
// list admits every client.
func NewIPAllowlist(entries []string, logger zerolog.Logger) (*IPAllowlist, error) {
	a := &IPAllowlist{logger: logger}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", entry, err)
			}
			a.prefixes = append(a.prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid IP %q: %w", entry, err)
		}
		addr = addr.Unmap()
		a.prefixes = append(a.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return a, nil
}

// Enabled reports whether any entry was configured.
func (a *IPAllowlist) Enabled() bool {
	return len(a.prefixes) > 0
}

// Allowed reports whether ip is admitted.
func (a *IPAllowlist) Allowed(ip string) bool {
	if !a.Enabled() {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range a.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Handler returns the gin handler.
func (a *IPAllowlist) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if !a.Allowed(client) {
			a.logger.Warn().Str("client_ip", client).Str("path", c.Request.URL.Path).Msg("Rejected client outside allowlist")
			abort(c, errForbidden)
			return
		}
		c.Next()
	}
}
