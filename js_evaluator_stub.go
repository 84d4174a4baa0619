//go:build !js_eval

package records

// NewJSEvaluator returns nil: JS filter expressions need the js_eval build
// tag. Models without an evaluator keep filtering with expr.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

// JSAvailable reports whether store filters can use the JS engine.
func JSAvailable() bool {
	return false
}
