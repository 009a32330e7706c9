package virtual

import (
	"slices"
	"sort"

	"github.com/ZJUSCT/OITrack/internal/config"
)

var grades = []string{"7", "8", "9", "10", "11", "12"}

// DefaultContexts are the participant context schemas known without any
// configuration. Config entries with the same type replace them.
var DefaultContexts = map[string][]config.ContextField{
	"egoi": {
		{Key: "grade", Options: grades},
	},
	"eligibility": {
		{Key: "gender", Options: []string{"female", "male", "nonbinary"}},
		{Key: "grade", Options: grades},
	},
}

// ContextRegistry validates categorical context payloads by type tag.
type ContextRegistry struct {
	schemas map[string][]config.ContextField
}

func NewContextRegistry(overrides map[string][]config.ContextField) *ContextRegistry {
	schemas := make(map[string][]config.ContextField, len(DefaultContexts)+len(overrides))
	for k, v := range DefaultContexts {
		schemas[k] = v
	}
	for k, v := range overrides {
		schemas[k] = v
	}
	return &ContextRegistry{schemas: schemas}
}

func (r *ContextRegistry) Types() []string {
	types := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

func (r *ContextRegistry) Schema(typ string) ([]config.ContextField, bool) {
	fields, ok := r.schemas[typ]
	return fields, ok
}

// Validate checks every key and value of ctx against the schema of typ.
func (r *ContextRegistry) Validate(typ string, ctx map[string]string) error {
	fields, ok := r.schemas[typ]
	if !ok {
		return newError(ErrNotFound, "Invalid type")
	}

	// Report problems in key order so the message is deterministic.
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		idx := slices.IndexFunc(fields, func(f config.ContextField) bool { return f.Key == key })
		if idx < 0 {
			return newError(ErrBadRequest, "Invalid key %s for context type %s", key, typ)
		}
		if !slices.Contains(fields[idx].Options, ctx[key]) {
			return newError(ErrBadRequest, "Invalid value %s for key %s", ctx[key], key)
		}
	}
	return nil
}
