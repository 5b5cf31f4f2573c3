package ports

import "time"

// ResolutionObserverPort receives counters about a walk.
type ResolutionObserverPort interface {
	ProjectParsed(name string)
	PackageResolved(name string, target string)
	PackageUnresolved(name string)
	PackageExcluded(name string)
	CompilerInvoked(exitCode int)
	WalkFinished(duration time.Duration)
}
