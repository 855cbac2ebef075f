package actor

import "github.com/lemarier/xtra/internal/logging"

// log is the package-level structured logger used throughout the actor
// runtime. It defaults to a no-op sink so the package is usable without
// wiring, and is meant to be replaced once at process startup via
// UseLogger, before any ActorSystem is constructed.
var log = logging.Disabled().NewSubsystem("actor")

// UseLogger replaces the package-level logger. Binaries embedding this
// runtime call it once during initialization, typically after building a
// dual console/file handler set in internal/build.
func UseLogger(l *logging.Logger) {
	log = l.NewSubsystem("actor")
}
