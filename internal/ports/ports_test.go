package ports

import (
	"net"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
)

func TestFindAvailablePort(t *testing.T) {
	// Let the system assign a port, then hold it.
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to get a test port: %v", err)
	}
	defer ln.Close()

	blockedPort := ln.Addr().(*net.TCPAddr).Port

	got := FindAvailablePort(blockedPort)
	if got <= blockedPort {
		t.Errorf("FindAvailablePort(%d) = %d; want a port above %d (because %d is busy)", blockedPort, got, blockedPort, blockedPort)
	}
	if IsPortAvailable(blockedPort) {
		t.Errorf("IsPortAvailable(%d) = true while listening", blockedPort)
	}
}

func TestURLs(t *testing.T) {
	if got := LocalURL(3000); got != "http://localhost:3000" {
		t.Errorf("LocalURL() = %q", got)
	}
	if got := NetworkURL("192.168.0.12", 3000); got != "http://192.168.0.12:3000" {
		t.Errorf("NetworkURL() = %q", got)
	}
}

func TestPickSiteLocal(t *testing.T) {
	tests := []struct {
		name   string
		ifaces psnet.InterfaceStatList
		want   string
		wantOK bool
	}{
		{
			name: "skips loopback and down interfaces",
			ifaces: psnet.InterfaceStatList{
				{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
				{Name: "eth1", Flags: []string{"broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.1.1.1/24"}}},
				{Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "fe80::1/64"}, {Addr: "192.168.0.12/24"}}},
			},
			want:   "192.168.0.12",
			wantOK: true,
		},
		{
			name: "ignores public addresses",
			ifaces: psnet.InterfaceStatList{
				{Name: "eth0", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{{Addr: "8.8.8.8/32"}}},
			},
			wantOK: false,
		},
		{
			name:   "no interfaces",
			ifaces: nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickSiteLocal(tt.ifaces)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("pickSiteLocal() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestListenerPID(t *testing.T) {
	conns := []psnet.ConnectionStat{
		{Status: "ESTABLISHED", Laddr: psnet.Addr{Port: 3000}, Pid: 11},
		{Status: "LISTEN", Laddr: psnet.Addr{Port: 8080}, Pid: 12},
		{Status: "LISTEN", Laddr: psnet.Addr{Port: 3000}, Pid: 13},
	}
	if got := listenerPID(conns, 3000); got != 13 {
		t.Errorf("listenerPID() = %d, want 13", got)
	}
	if got := listenerPID(conns, 5173); got != 0 {
		t.Errorf("listenerPID() = %d, want 0", got)
	}
}
