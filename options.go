package mountstore

import (
	"github.com/goliatone/go-mountstore/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	id             string
	logger         *zap.Logger
	evaluator      Evaluator
	programCache   ProgramCache
	functions      *FunctionRegistry
	activityHooks  activity.Hooks
	activityConfig *activity.Config
	registerer     prometheus.Registerer
	queryHandler   QueryHandler
	enhancer       Enhancer
	errs           []error
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

// WithID overrides the generated store instance ID.
func WithID(id string) Option {
	return func(cfg *storeConfig) {
		cfg.id = id
	}
}

// WithLogger configures the structured logger. A nil logger keeps the no-op
// default.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithEvaluator configures the engine that compiles Expr bindings.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithQueryHandler lets a collaborator answer Query actions.
func WithQueryHandler(handler QueryHandler) Option {
	return func(cfg *storeConfig) {
		cfg.queryHandler = handler
	}
}

// WithEnhancer wraps store construction. Only the root store accepts
// enhancers.
func WithEnhancer(enhancer Enhancer) Option {
	return func(cfg *storeConfig) {
		cfg.enhancer = enhancer
	}
}

// WithMetrics registers store collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *storeConfig) {
		cfg.registerer = reg
	}
}

func withoutEnhancer() Option {
	return func(cfg *storeConfig) {
		cfg.enhancer = nil
	}
}
