package trait

import "time"

// Clock abstracts time for registration stamps and the validation latency
// budget. Tests inject a deterministic one with WithClock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// defaultLatencyBudget is the registration validation budget. Exceeding it
// never fails the call; the result carries a performance warning.
const defaultLatencyBudget = 100 * time.Microsecond

type registryOptions struct {
	clock         Clock
	logger        Logger
	localModules  []string
	latencyBudget time.Duration
}

func defaultRegistryOptions() registryOptions {
	return registryOptions{
		clock:         systemClock{},
		logger:        noopLogger{},
		latencyBudget: defaultLatencyBudget,
	}
}

// Option configures a Registry.
type Option func(*registryOptions)

// WithClock overrides the registry clock.
func WithClock(c Clock) Option {
	return func(o *registryOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger overrides the registry logger.
func WithLogger(l Logger) Option {
	return func(o *registryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLocalModules extends the set of module path prefixes the orphan rule
// treats as local. The engine's own module path is always local.
func WithLocalModules(prefixes ...string) Option {
	return func(o *registryOptions) {
		for _, p := range prefixes {
			if p != "" {
				o.localModules = append(o.localModules, p)
			}
		}
	}
}

// WithLatencyBudget overrides the validation latency budget.
func WithLatencyBudget(d time.Duration) Option {
	return func(o *registryOptions) {
		if d > 0 {
			o.latencyBudget = d
		}
	}
}

type composerOptions struct {
	cacheSize int
	logger    Logger
}

// defaultCacheSize bounds the composer's generated-model cache.
const defaultCacheSize = 512

func defaultComposerOptions() composerOptions {
	return composerOptions{cacheSize: defaultCacheSize, logger: noopLogger{}}
}

// ComposerOption configures a Composer.
type ComposerOption func(*composerOptions)

// WithCacheSize bounds the generated-model cache. Values below one fall
// back to the default.
func WithCacheSize(n int) ComposerOption {
	return func(o *composerOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithComposerLogger overrides the composer logger.
func WithComposerLogger(l Logger) ComposerOption {
	return func(o *composerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
