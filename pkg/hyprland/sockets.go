package hyprland

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

var ErrNotRunning = errors.New("hyprland might not be running")

type Sockets struct {
	// Control accepts hyprctl requests.
	Control string
	// Events streams socket2 events.
	Events string
}

// FindSockets locates the sockets of the running instance. Recent Hyprland
// versions keep them under $XDG_RUNTIME_DIR/hypr, older ones under /tmp/hypr.
func FindSockets() (Sockets, error) {
	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if signature == "" {
		return Sockets{}, fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE is not set, %w", ErrNotRunning)
	}

	var dirs []string
	if xdg.RuntimeDir != "" {
		dirs = append(dirs, filepath.Join(xdg.RuntimeDir, "hypr", signature))
	}
	dirs = append(dirs, filepath.Join("/tmp/hypr", signature))

	for _, dir := range dirs {
		sockets := socketsIn(dir)
		if _, err := os.Stat(sockets.Events); err == nil {
			return sockets, nil
		}
	}

	return Sockets{}, fmt.Errorf("no sockets for instance %s, %w", signature, ErrNotRunning)
}

func socketsIn(dir string) Sockets {
	return Sockets{
		Control: filepath.Join(dir, ".socket.sock"),
		Events:  filepath.Join(dir, ".socket2.sock"),
	}
}
