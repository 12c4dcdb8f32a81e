package observability

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPResolver derives the client address of a request. X-Forwarded-For is
// only read when the direct peer is a configured proxy, and then the
// right-most hop that is not itself a proxy wins, since hops to its left are
// client supplied.
type IPResolver struct {
	trusted []netip.Prefix
}

// NewIPResolver accepts CIDR ranges or single addresses of the proxies in
// front of the service. An empty list trusts no forwarding header.
func NewIPResolver(trustedProxies []string) (*IPResolver, error) {
	resolver := &IPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			resolver.trusted = append(resolver.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		resolver.trusted = append(resolver.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return resolver, nil
}

func (r *IPResolver) isTrusted(addr netip.Addr) bool {
	if r == nil {
		return false
	}
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (r *IPResolver) ClientIP(req *http.Request) string {
	peer := peerHost(req.RemoteAddr)
	peerAddr, err := netip.ParseAddr(peer)
	if err != nil || !r.isTrusted(peerAddr.Unmap()) {
		return peer
	}

	client := peerAddr.Unmap()
	hops := strings.Split(strings.Join(req.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = hop.Unmap()
		if !r.isTrusted(client) {
			break
		}
	}
	return client.String()
}

// ClientIP returns the host of the direct peer, ignoring forwarding headers.
func ClientIP(r *http.Request) string {
	return peerHost(r.RemoteAddr)
}

func peerHost(remoteAddr string) string {
	if remoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().WithZone("").String()
	}
	return host
}
