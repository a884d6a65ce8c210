package ports

import (
	"net"
	"os"
	"slices"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// PlaceholderAddr is returned when no site-local address can be found.
const PlaceholderAddr = "192.168.1.100"

// SiteLocalAddress returns the first private IPv4 address of an interface
// that is up and not a loopback. It falls back to the addresses the host
// name resolves to, then to PlaceholderAddr.
func SiteLocalAddress() string {
	if ifaces, err := psnet.Interfaces(); err == nil {
		if addr, ok := pickSiteLocal(ifaces); ok {
			return addr
		}
	}

	if host, err := os.Hostname(); err == nil {
		if ips, err := net.LookupIP(host); err == nil {
			for _, ip := range ips {
				if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
					return ip4.String()
				}
			}
		}
	}
	return PlaceholderAddr
}

func pickSiteLocal(ifaces psnet.InterfaceStatList) (string, bool) {
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil {
				ip = net.ParseIP(a.Addr)
			}
			if ip == nil {
				continue
			}
			if ip4 := ip.To4(); ip4 != nil && ip4.IsPrivate() {
				return ip4.String(), true
			}
		}
	}
	return "", false
}
