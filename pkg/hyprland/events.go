package hyprland

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rami3l/clavy/pkg/notification"
	"go.uber.org/zap"
)

// Notification names posted by Events.Run.
const (
	ActiveWindowChanged = "HyprlandActiveWindowChangedNotification"
	ActiveLayoutChanged = "HyprlandActiveLayoutChangedNotification"
)

var ErrInvalidEvent = errors.New("invalid event")

type Event struct {
	Name string
	Data string
}

func ParseEvent(line string) (Event, error) {
	name, data, ok := strings.Cut(line, ">>")
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEvent, line)
	}
	return Event{Name: name, Data: data}, nil
}

type Poster interface {
	Post(name string, n notification.Notification)
}

// Events reads the socket2 event stream.
type Events struct {
	conn   net.Conn
	reader *bufio.Reader
	log    *zap.SugaredLogger
}

func DialEvents(path string, log *zap.SugaredLogger) (*Events, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Events{conn: conn, reader: bufio.NewReader(conn), log: log}, nil
}

func (e *Events) Close() error {
	return e.conn.Close()
}

func (e *Events) ReadEvent() (Event, error) {
	str, err := e.reader.ReadString('\n')
	if err != nil {
		return Event{}, fmt.Errorf("read from hypr socket: %w", err)
	}
	return ParseEvent(strings.TrimSuffix(str, "\n"))
}

// Run posts window and layout events until ctx is done or the stream ends.
// The connection is closed on return.
func (e *Events) Run(ctx context.Context, poster Poster) error {
	stop := context.AfterFunc(ctx, func() { _ = e.conn.Close() })
	defer stop()
	defer e.conn.Close()

	for {
		ev, err := e.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrInvalidEvent) {
				e.log.Debugf("skipping event: %v", err)
				continue
			}
			return fmt.Errorf("read events: %w", err)
		}

		e.dispatch(ev, poster)
	}
}

func (e *Events) dispatch(ev Event, poster Poster) {
	switch ev.Name {
	case "activewindow":
		class, _, _ := strings.Cut(ev.Data, ",")
		if class == "" {
			// nothing focused
			return
		}
		poster.Post(ActiveWindowChanged, notification.Notification{App: class})

	case "activelayout":
		device, layout, ok := strings.Cut(ev.Data, ",")
		if !ok {
			e.log.Debugf("invalid layout change data: %q", ev.Data)
			return
		}
		e.log.Debugf("layout of %s changed to %q", device, layout)
		poster.Post(ActiveLayoutChanged, notification.Notification{App: ""})
	}
}
