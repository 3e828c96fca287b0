//go:build !js_eval

package mountstore

// NewJSEvaluator returns nil unless built with the js_eval tag.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
