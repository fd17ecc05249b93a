package hyprland

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/xkblayouts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const devicesJSON = `{
	"mice": [],
	"keyboards": [
		{"name": "power-button", "layout": "us", "variant": "", "active_keymap": "English (US)", "main": false},
		{"name": "at-translated-set-2-keyboard", "layout": "us,de,us", "variant": ",nodeadkeys,intl", "active_keymap": "English (US)", "main": true}
	]
}`

func socketDir(t *testing.T) string {
	t.Helper()
	// keep it short, unix socket paths are limited
	dir, err := os.MkdirTemp("", "hypr")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

type controlServer struct {
	lock      sync.Mutex
	responses map[string]string
	requests  []string
}

func serveControl(t *testing.T, responses map[string]string) (*controlServer, string) {
	t.Helper()
	path := filepath.Join(socketDir(t), ".socket.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := &controlServer{responses: responses}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 1024)
			n, _ := conn.Read(buf)
			req := string(buf[:n])

			srv.lock.Lock()
			srv.requests = append(srv.requests, req)
			resp := srv.responses[req]
			srv.lock.Unlock()

			_, _ = conn.Write([]byte(resp))
			conn.Close()
		}
	}()

	return srv, path
}

func (s *controlServer) setResponse(req, resp string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.responses[req] = resp
}

func (s *controlServer) received() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.requests...)
}

func testRegistry(t *testing.T) *xkblayouts.XkbConfigRegistry {
	t.Helper()
	registry, err := xkblayouts.ParseLayouts(filepath.Join("..", "xkblayouts", "testdata", "evdev.xml"))
	require.NoError(t, err)
	return registry
}

func TestHyprctl_Keyboards(t *testing.T) {
	_, path := serveControl(t, map[string]string{"j/devices": devicesJSON})
	c := NewHyprctl(path, testRegistry(t), "")

	keyboards, err := c.Keyboards()
	require.NoError(t, err)
	require.Len(t, keyboards, 2)
	assert.Equal(t, []string{""}, keyboards[0].Variants)
	assert.Equal(t, []string{"us", "de", "us"}, keyboards[1].Layouts)
	assert.Equal(t, []string{"", "nodeadkeys", "intl"}, keyboards[1].Variants)
	assert.True(t, keyboards[1].Main)

	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, clavy.InputSourceID("English (US)"), current)
}

func TestHyprctl_Available(t *testing.T) {
	_, path := serveControl(t, map[string]string{"j/devices": devicesJSON})
	c := NewHyprctl(path, testRegistry(t), "")

	kb, sources, err := c.Available()
	require.NoError(t, err)
	assert.Equal(t, "at-translated-set-2-keyboard", kb)
	assert.Equal(t, []clavy.InputSourceID{
		"English (US)",
		"German (no dead keys)",
		"English (US, intl., with dead keys)",
	}, sources)
}

func TestHyprctl_Select(t *testing.T) {
	srv, path := serveControl(t, map[string]string{
		"j/devices": devicesJSON,
		"/switchxkblayout at-translated-set-2-keyboard 1": "ok",
	})
	c := NewHyprctl(path, testRegistry(t), "")

	ok, err := c.Select("German (no dead keys)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, srv.received(), "/switchxkblayout at-translated-set-2-keyboard 1")

	ok, err = c.Select("English (US)")
	require.NoError(t, err)
	assert.True(t, ok, "already active")

	ok, err = c.Select("German")
	require.NoError(t, err)
	assert.False(t, ok, "known layout that the keyboard does not carry")

	ok, err = c.Select("Klingon")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHyprctl_SwitchErrors(t *testing.T) {
	srv, path := serveControl(t, map[string]string{
		"/switchxkblayout kb 9":   "layout idx out of range",
		"/switchxkblayout nope 0": "device not found",
		"/switchxkblayout kb 1":   "something else",
	})
	c := NewHyprctl(path, testRegistry(t), "")

	assert.ErrorIs(t, c.SwitchToLayout("kb", 9), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.SwitchToLayout("nope", 0), ErrDeviceNotFound)
	assert.ErrorContains(t, c.SwitchToLayout("kb", 1), "hyprctl: something else")

	srv.setResponse("/switchxkblayout kb 1", "ok")
	assert.NoError(t, c.SwitchToLayout("kb", 1))
}

func TestHyprctl_FollowsNamedKeyboard(t *testing.T) {
	_, path := serveControl(t, map[string]string{"j/devices": devicesJSON})

	c := NewHyprctl(path, testRegistry(t), "power-button")
	kb, err := c.followed()
	require.NoError(t, err)
	assert.Equal(t, "power-button", kb.Name)

	c = NewHyprctl(path, testRegistry(t), "missing")
	_, err = c.Current()
	assert.ErrorIs(t, err, ErrNoKeyboard)
}

func TestHyprctl_ForegroundApp(t *testing.T) {
	srv, path := serveControl(t, map[string]string{
		"j/activewindow": `{"class": "kitty", "title": "~", "pid": 42}`,
	})
	c := NewHyprctl(path, testRegistry(t), "")

	app, ok := c.ForegroundApp()
	assert.True(t, ok)
	assert.Equal(t, clavy.AppID("kitty"), app)

	srv.setResponse("j/activewindow", "{}")
	_, ok = c.ForegroundApp()
	assert.False(t, ok)
}

func TestHyprctl_NotRunning(t *testing.T) {
	c := NewHyprctl(filepath.Join(socketDir(t), ".socket.sock"), testRegistry(t), "")
	_, err := c.Keyboards()
	assert.ErrorContains(t, err, "dial hyprctl socket")
}

type recordingPoster struct {
	lock  sync.Mutex
	posts []notification.Notification
}

func (p *recordingPoster) Post(name string, n notification.Notification) {
	p.lock.Lock()
	defer p.lock.Unlock()
	n.Name = name
	p.posts = append(p.posts, n)
}

func (p *recordingPoster) all() []notification.Notification {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]notification.Notification(nil), p.posts...)
}

func TestEvents_Run(t *testing.T) {
	path := filepath.Join(socketDir(t), ".socket2.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("workspace>>2\n" +
			"activewindow>>kitty,~/src\n" +
			"garbage\n" +
			"activewindow>>,\n" +
			"activelayout>>at-translated-set-2-keyboard,German (no dead keys)\n" +
			"activewindow>>firefox,Mozilla Firefox\n"))
		// keep the stream open until the client goes away
		_, _ = conn.Read(make([]byte, 1))
		conn.Close()
	}()

	events, err := DialEvents(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	poster := &recordingPoster{}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- events.Run(ctx, poster) }()

	require.Eventually(t, func() bool { return len(poster.all()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []notification.Notification{
		{Name: ActiveWindowChanged, App: "kitty"},
		{Name: ActiveLayoutChanged},
		{Name: ActiveWindowChanged, App: "firefox"},
	}, poster.all())

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestEvents_StreamEnds(t *testing.T) {
	path := filepath.Join(socketDir(t), ".socket2.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	events, err := DialEvents(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.ErrorContains(t, events.Run(context.Background(), &recordingPoster{}), "read events")
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("activelayout>>kb,English (US, intl., with dead keys)")
	require.NoError(t, err)
	assert.Equal(t, Event{Name: "activelayout", Data: "kb,English (US, intl., with dead keys)"}, ev)

	_, err = ParseEvent("nope")
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestFindSockets(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	_, err := FindSockets()
	assert.ErrorIs(t, err, ErrNotRunning)

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "clavy-test-missing-instance")
	_, err = FindSockets()
	assert.ErrorIs(t, err, ErrNotRunning)

	assert.Equal(t, Sockets{
		Control: "/run/user/1000/hypr/sig/.socket.sock",
		Events:  "/run/user/1000/hypr/sig/.socket2.sock",
	}, socketsIn("/run/user/1000/hypr/sig"))
}
