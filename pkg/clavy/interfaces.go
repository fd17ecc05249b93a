package clavy

import "github.com/rami3l/clavy/pkg/notification"

type AppID string

type InputSourceID string

type NotificationSource interface {
	Register(name string, handler notification.Handler) (notification.Handle, error)
}

type AppLookup interface {
	AppForPID(pid int) (AppID, bool)
}

type ForegroundResolver interface {
	ForegroundApp() (AppID, bool)
}

type InputSources interface {
	Current() (InputSourceID, error)
	// Select reports true when id is active afterwards, including when it
	// already was, and false when no installed source matches id.
	Select(id InputSourceID) (bool, error)
}

type Store interface {
	Save(app AppID, source InputSourceID)
	Load(app AppID) (InputSourceID, bool)
}
