package hyprland

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/xkblayouts"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrNoKeyboard      = errors.New("no keyboard found")
)

var errorMapper = []struct {
	re  *regexp.Regexp
	err error
}{
	{regexp.MustCompile(`^ok$`), nil},
	{regexp.MustCompile(`layout idx out of range`), ErrIndexOutOfRange},
	{regexp.MustCompile(`device not found`), ErrDeviceNotFound},
}

// Hyprctl talks to the control socket. Input sources are identified by the
// layout description Hyprland reports as active_keymap, which registry maps
// back to layout codes.
type Hyprctl struct {
	path     string
	registry *xkblayouts.XkbConfigRegistry
	// keyboard to follow; empty means the main keyboard
	keyboard string
}

func NewHyprctl(path string, registry *xkblayouts.XkbConfigRegistry, keyboard string) *Hyprctl {
	return &Hyprctl{path: path, registry: registry, keyboard: keyboard}
}

func (c *Hyprctl) SwitchToLayout(keyboard string, idx int) error {
	resp, err := c.request(fmt.Sprintf("switchxkblayout %s %d", keyboard, idx), "")
	if err != nil {
		return err
	}

	out := strings.TrimSpace(string(resp))
	for _, m := range errorMapper {
		if m.re.MatchString(out) {
			return m.err
		}
	}

	return fmt.Errorf("hyprctl: %s", out)
}

func (c *Hyprctl) Keyboards() ([]Keyboard, error) {
	resp, err := c.request("devices", "j")
	if err != nil {
		return nil, err
	}

	var devs devices
	if err := json.Unmarshal(resp, &devs); err != nil {
		return nil, fmt.Errorf("unmarshal devices: %w", err)
	}

	out := make([]Keyboard, 0, len(devs.Keyboards))
	for _, k := range devs.Keyboards {
		out = append(out, k.toKeyboard())
	}

	return out, nil
}

// ForegroundApp returns the class of the focused window.
func (c *Hyprctl) ForegroundApp() (clavy.AppID, bool) {
	resp, err := c.request("activewindow", "j")
	if err != nil {
		return "", false
	}

	var w window
	if err := json.Unmarshal(resp, &w); err != nil || w.Class == "" {
		return "", false
	}

	return clavy.AppID(w.Class), true
}

func (c *Hyprctl) Current() (clavy.InputSourceID, error) {
	kb, err := c.followed()
	if err != nil {
		return "", err
	}
	return clavy.InputSourceID(kb.ActiveKeymap), nil
}

// Available returns the followed keyboard name and the input sources it can
// switch to. Layouts unknown to the registry are skipped.
func (c *Hyprctl) Available() (string, []clavy.InputSourceID, error) {
	kb, err := c.followed()
	if err != nil {
		return "", nil, err
	}

	var sources []clavy.InputSourceID
	for i, layout := range kb.Layouts {
		name := c.registry.PrettyName(layout, kb.Variants[i])
		if name == "" {
			continue
		}
		sources = append(sources, clavy.InputSourceID(name))
	}

	return kb.Name, sources, nil
}

// Select reports false when the layout is not configured for the keyboard.
func (c *Hyprctl) Select(id clavy.InputSourceID) (bool, error) {
	kb, err := c.followed()
	if err != nil {
		return false, err
	}
	if kb.ActiveKeymap == string(id) {
		return true, nil
	}

	layoutCode, variantCode, ok := c.registry.Find(string(id))
	if !ok {
		return false, nil
	}

	for i := range kb.Layouts {
		if kb.Layouts[i] == layoutCode && kb.Variants[i] == variantCode {
			if err := c.SwitchToLayout(kb.Name, i); err != nil {
				return false, fmt.Errorf("switch layout: %w", err)
			}
			return true, nil
		}
	}

	return false, nil
}

func (c *Hyprctl) followed() (Keyboard, error) {
	keyboards, err := c.Keyboards()
	if err != nil {
		return Keyboard{}, fmt.Errorf("get keyboards: %w", err)
	}

	for _, kb := range keyboards {
		if c.keyboard != "" && kb.Name == c.keyboard {
			return kb, nil
		}
		if c.keyboard == "" && kb.Main {
			return kb, nil
		}
	}
	if c.keyboard == "" && len(keyboards) > 0 {
		return keyboards[0], nil
	}

	return Keyboard{}, ErrNoKeyboard
}

func (c *Hyprctl) request(request string, flags string) ([]byte, error) {
	conn, err := net.Dial("unix", c.path)
	if err != nil {
		return nil, fmt.Errorf("dial hyprctl socket: %w", err)
	}
	defer conn.Close()

	_, err = conn.Write([]byte(fmt.Sprintf("%s/%s", flags, request)))
	if err != nil {
		return nil, fmt.Errorf("write to hyprctl socket: %w", err)
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read from hyprctl socket: %w", err)
	}

	return resp, nil
}
