package activation

import "sync"

var (
	sharedOnce    sync.Once
	sharedManager *Manager
	sharedErr     error
)

// Shared returns the process-wide Manager over the process environment. The
// first call builds it from cfg; later calls return the same Manager and
// ignore cfg. cfg.Env is always replaced with OSEnv, and an EnvPrompt is
// rebound to it.
func Shared(cfg Config) (*Manager, error) {
	sharedOnce.Do(func() {
		cfg.Env = OSEnv{}
		if p, ok := cfg.Prompt.(EnvPrompt); ok {
			p.Env = cfg.Env
			cfg.Prompt = p
		}
		sharedManager, sharedErr = New(cfg)
	})
	return sharedManager, sharedErr
}
