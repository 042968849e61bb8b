package compiler

import "github.com/VictoriaMetrics/metrics"

var (
	compiledTotal       = metrics.NewCounter(`rcompile_compiled_total`)
	unsupportedTotal    = metrics.NewCounter(`rcompile_unsupported_total`)
	internalErrorsTotal = metrics.NewCounter(`rcompile_internal_errors_total`)
	nestedCompiledTotal = metrics.NewCounter(`rcompile_nested_compiled_total`)

	compileDuration = metrics.NewHistogram(`rcompile_compile_duration_seconds`)
	blockCount      = metrics.NewHistogram(`rcompile_blocks`)
)
