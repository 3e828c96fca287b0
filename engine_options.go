package mountstore

import (
	"sort"
	"strings"
)

// EngineOption configures an expression engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EngineCache shares compiled programs through cache.
func EngineCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes a copy of registry to expressions. Functions
// registered afterwards are not visible to the engine.
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		cfg.functions = registry.Clone()
	}
}

func applyEngineOptions(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// callFunction is the dynamic entry point every engine exposes:
// call("name", args...).
const callFunction = "call"

// Variables every engine defines. Snapshot keys with these names are hidden.
var reservedVariables = map[string]bool{
	"now":        true,
	"args":       true,
	"metadata":   true,
	"mount":      true,
	"host":       true,
	callFunction: true,
}

// ruleVariables lays out the expression scope: snapshot keys at the top
// level, host for the whole snapshot, then now, args, metadata and mount.
func ruleVariables(ctx RuleContext) map[string]any {
	snapshot, _ := ctx.Snapshot.(map[string]any)
	vars := make(map[string]any, len(snapshot)+5)
	for key, value := range snapshot {
		if reservedVariables[key] {
			continue
		}
		vars[key] = value
	}
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	vars["host"] = snapshot
	vars["now"] = ctx.timestamp()
	vars["args"] = ctx.Args
	vars["metadata"] = ctx.Metadata
	vars["mount"] = ctx.Path
	return vars
}

// scopedProgramKey names a program compiled against the variable set of
// vars. Engines that declare variables cache one program per key set.
func scopedProgramKey(engine, expression string, vars map[string]any) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return engine + ":" + strings.Join(keys, ",") + ":" + expression
}
