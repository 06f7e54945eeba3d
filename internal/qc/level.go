package qc

// DefaultWindow is the number of finalized folders the switching rule inspects.
const DefaultWindow = 5

// LevelPolicy resolves a project's next inspection level from its most recent
// finalized folder statuses, newest first.
type LevelPolicy interface {
	Resolve(current Level, history []Status) Level
}

// SwitchingPolicy moves to Normal after Window consecutive passes and
// tightens otherwise. A project with fewer than Window finalized folders
// stays Tightened.
//
// No rule reaches Reduced. A policy that relaxes further should be a
// separate LevelPolicy implementation.
type SwitchingPolicy struct {
	Window int
}

func (p SwitchingPolicy) Resolve(current Level, history []Status) Level {
	window := p.Window
	if window < 1 {
		window = DefaultWindow
	}

	if len(history) < window {
		return LevelTightened
	}

	for _, s := range history[:window] {
		if s != StatusPassed {
			return LevelTightened
		}
	}
	return LevelNormal
}
