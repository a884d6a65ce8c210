package ports

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// DefaultPort is the port the dev server listens on unless configured otherwise.
const DefaultPort = 3000

// IsPortAvailable checks if a port is available for binding
func IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// GetProcessOnPort returns the PID of the process listening on port, or 0
// when none is found or the connection table cannot be read.
func GetProcessOnPort(ctx context.Context, port int) int {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	conns, err := psnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return 0
	}
	return listenerPID(conns, port)
}

func listenerPID(conns []psnet.ConnectionStat, port int) int {
	for _, c := range conns {
		if c.Status == "LISTEN" && int(c.Laddr.Port) == port && c.Pid > 0 {
			return int(c.Pid)
		}
	}
	return 0
}

// FindAvailablePort finds the next available port starting from the given port
func FindAvailablePort(startPort int) int {
	const maxAttempts = 100
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		if port > 65535 {
			break
		}
		if IsPortAvailable(port) {
			return port
		}
	}
	return 0
}

// GetPortStatus returns a human-readable status of a port
func GetPortStatus(ctx context.Context, port int) string {
	if IsPortAvailable(port) {
		return fmt.Sprintf("Port %d is available", port)
	}
	if pid := GetProcessOnPort(ctx, port); pid > 0 {
		return fmt.Sprintf("Port %d is in use (PID %d)", port, pid)
	}
	return fmt.Sprintf("Port %d is in use", port)
}

// LocalURL is the loopback URL of a server on port.
func LocalURL(port int) string {
	return NetworkURL("localhost", port)
}

// NetworkURL is the URL other machines on the LAN use to reach host:port.
func NetworkURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}
