package tracker

import "github.com/rami3l/clavy/pkg/clavy"

// DefaultExclude lists apps that refuse accessibility observers or never
// send the hidden notification.
var DefaultExclude = []clavy.AppID{
	"com.apple.dock",
	"com.apple.universalcontrol",
	"com.apple.controlcenter",
	"com.apple.notificationcenterui",
}

// DefaultDetectPopup lists launcher-style apps whose panel does not show up
// as a regular window.
var DefaultDetectPopup = []clavy.AppID{
	"com.apple.Spotlight",
	"com.raycast.macos",
	"com.runningwithcrayons.Alfred",
}

type Policy struct {
	Exclude     map[clavy.AppID]struct{}
	DetectPopup map[clavy.AppID]struct{}
}

// NewPolicy always excludes DefaultExclude in addition to exclude.
func NewPolicy(exclude, detectPopup []clavy.AppID) Policy {
	p := Policy{
		Exclude:     make(map[clavy.AppID]struct{}),
		DetectPopup: make(map[clavy.AppID]struct{}),
	}
	for _, app := range DefaultExclude {
		p.Exclude[app] = struct{}{}
	}
	for _, app := range exclude {
		p.Exclude[app] = struct{}{}
	}
	for _, app := range detectPopup {
		p.DetectPopup[app] = struct{}{}
	}
	return p
}

func (p Policy) Allowed(app clavy.AppID) bool {
	_, excluded := p.Exclude[app]
	return !excluded
}

// Target computes the pids to observe: windowed and allowed, plus any
// running popup app.
func (p Policy) Target(running []Process, windowed map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{})
	for _, proc := range running {
		if proc.PID <= 0 || !p.Allowed(proc.App) {
			continue
		}
		_, hasWindow := windowed[proc.PID]
		_, popup := p.DetectPopup[proc.App]
		if hasWindow || popup {
			out[proc.PID] = struct{}{}
		}
	}
	return out
}
