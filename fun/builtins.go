package fun

import "sync"

// Math1 is the variant family selected by the MATH1 instruction.
const Math1 = "math1"

// math1Funs is the MATH1 table in the order the bytecode compiler indexes it.
var math1Funs = []string{
	"floor", "ceiling", "sqrt", "sign",
	"expm1", "log1p",
	"cos", "sin", "tan", "cospi", "sinpi", "tanpi",
	"acos", "asin", "atan",
	"cosh", "sinh", "tanh", "acosh", "asinh", "atanh",
	"lgamma", "gamma", "digamma", "trigamma",
}

var safeBuiltins = []string{
	"+", "-", "*", "/", "^", "%%", "%/%",
	"==", "!=", "<", "<=", ">=", ">",
	"&", "|", "!", "&&", "||",
	"exp", "log", ":", "seq_along", "seq_len", "length",
	"is.null", "is.logical", "is.integer", "is.double", "is.complex",
	"is.character", "is.symbol", "is.object", "is.numeric", "is.factor",
	"is.vector", "as.logical", "as.integer", "as.character",
}

var unsafeBuiltins = []string{
	"[", "[[", "[<-", "[[<-", "$", "$<-", "c", "list",
	".Call", "stop", "warning", "invisible", "print",
}

var specials = []string{
	"quote", "substitute", "missing", "on.exit", "function",
	"if", "for", "while", "repeat", "break", "next", "return",
	"{", "(", "<-", "<<-", "=", "&&", "||",
}

var internals = []string{
	"paste0", "vapply", "lapply", "identical", "inherits",
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry of R base builtins the compiler knows
// about. It is populated once and never mutated afterwards.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, n := range safeBuiltins {
			r.Register(&Builtin{Name: n, Kind: KindBuiltin, Safe: true})
		}
		for _, n := range math1Funs {
			r.Register(&Builtin{Name: n, Kind: KindBuiltin, Safe: true})
		}
		for _, n := range unsafeBuiltins {
			r.Register(&Builtin{Name: n, Kind: KindBuiltin})
		}
		for _, n := range specials {
			if _, taken := r.Lookup(n); taken {
				continue
			}
			r.Register(&Builtin{Name: n, Kind: KindSpecial})
		}
		for _, n := range internals {
			r.Register(&Builtin{Name: n, Kind: KindInternal})
		}
		if err := r.RegisterVariants(Math1, math1Funs); err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
