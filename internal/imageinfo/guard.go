package imageinfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when an image URL points at an internal address.
var ErrBlockedAddress = errors.New("address not allowed")

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// AddressPolicy decides which remote addresses images may be loaded from.
// Loopback, private, link-local, multicast and unspecified addresses are
// refused unless they fall inside an allowed prefix.
type AddressPolicy struct {
	allowed  []netip.Prefix
	resolver *net.Resolver
}

// NewAddressPolicy parses allowed as CIDR prefixes (or single addresses) that
// bypass the internal-address block, e.g. "127.0.0.0/8" for local development.
func NewAddressPolicy(allowed []string) (*AddressPolicy, error) {
	p := &AddressPolicy{resolver: net.DefaultResolver}
	for _, raw := range allowed {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			addr, addrErr := netip.ParseAddr(raw)
			if addrErr != nil {
				return nil, fmt.Errorf("invalid allowed network %q: %w", raw, err)
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		p.allowed = append(p.allowed, prefix.Masked())
	}
	return p, nil
}

// Allows reports whether addr may be contacted.
func (p *AddressPolicy) Allows(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range p.allowed {
		if prefix.Contains(addr) {
			return true
		}
	}
	return !isInternal(addr)
}

func isInternal(addr netip.Addr) bool {
	return !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// control runs after DNS resolution on every dial, so redirects and
// rebinding hosts are checked against the address actually used.
func (p *AddressPolicy) control(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !p.Allows(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

// CheckURL resolves the host of u and fails when any of its addresses is
// refused. Inline schemes (data, blob, about) are always allowed; schemes
// other than http and https never are.
func (p *AddressPolicy) CheckURL(ctx context.Context, u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "data", "blob", "about":
		return nil
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q", ErrBlockedAddress, u.Scheme)
	}

	host := u.Hostname()
	if addr, err := netip.ParseAddr(host); err == nil {
		if !p.Allows(addr) {
			return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
		}
		return nil
	}
	addrs, err := p.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, addr := range addrs {
		if !p.Allows(addr) {
			return fmt.Errorf("%w: %s resolves to %s", ErrBlockedAddress, host, addr)
		}
	}
	return nil
}

// NewHTTPClient returns a client whose connections are filtered by p.
// Proxies are not used so the dial always targets the image host itself.
func NewHTTPClient(p *AddressPolicy) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if p != nil {
		dialer.Control = p.control
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}
