// Package systemd integrates the server with systemd socket activation and
// readiness notification. Outside systemd every call is a no-op.
package systemd

import (
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// HTTPSocketName is the FileDescriptorName= of the API socket in the unit.
const HTTPSocketName = "http"

// Listener returns the socket-activated API listener, or nil when the
// process was not started by a socket unit.
func Listener() (net.Listener, error) {
	if len(activation.Files(false)) == 0 {
		return nil, nil
	}

	named, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if lns, ok := named[HTTPSocketName]; ok && len(lns) > 0 {
		return lns[0], nil
	}

	// Units without FileDescriptorName= hand over a single unnamed socket.
	for _, lns := range named {
		if len(lns) > 0 && lns[0] != nil {
			return lns[0], nil
		}
	}
	return nil, fmt.Errorf("socket activation did not pass a stream listener")
}

// NotifyReady sends READY=1 to systemd.
func NotifyReady() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		return fmt.Errorf("failed to send sd_notify: %w", err)
	}
	return nil
}

// NotifyStopping sends STOPPING=1 to systemd.
func NotifyStopping() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		return fmt.Errorf("failed to send sd_notify stopping: %w", err)
	}
	return nil
}
