package core

import "time"

type noopObserver struct{}

func (noopObserver) ProjectParsed(string)           {}
func (noopObserver) PackageResolved(string, string) {}
func (noopObserver) PackageUnresolved(string)       {}
func (noopObserver) PackageExcluded(string)         {}
func (noopObserver) CompilerInvoked(int)            {}
func (noopObserver) WalkFinished(time.Duration)     {}
