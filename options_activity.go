package mountstore

import "github.com/goliatone/go-mountstore/pkg/activity"

// WithActivityHooks attaches hooks notified of mount lifecycle events. Hooks
// are cloned and nil entries dropped. Emission is enabled unless
// WithActivityConfig says otherwise.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.Compact(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emitter defaults.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activityConfig = &config
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return activity.Compact(s.cfg.activityHooks)
}

func (cfg storeConfig) emitter() *activity.Emitter {
	config := activity.Config{Enabled: true, Channel: activity.DefaultChannel}
	if cfg.activityConfig != nil {
		config = *cfg.activityConfig
	}
	return activity.NewEmitter(cfg.activityHooks, config)
}
