package clavy

type ActivationEvent struct {
	// Source names the notification that produced the event.
	Source string
	App    AppID
}

type Origin int

const (
	OriginSystem Origin = iota
	OriginSwitcher
)

func (o Origin) String() string {
	switch o {
	case OriginSystem:
		return "system"
	case OriginSwitcher:
		return "switcher"
	}
	return "unknown"
}

type InputSourceChange struct {
	Source InputSourceID
	Origin Origin
}
