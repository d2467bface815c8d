package evaluator

// Registry resolves names for one entity: the shared builtin table plus the
// sources registered on that entity, in registration order.
type Registry struct {
	table   *Table
	sources []Source
}

func NewRegistry(table *Table) *Registry {
	if table == nil {
		table = NewTable()
	}
	return &Registry{table: table}
}

func (r *Registry) AddSource(src Source) {
	if src != nil {
		r.sources = append(r.sources, src)
	}
}

func (r *Registry) Sources() int { return len(r.sources) }

// Resolve never fails: names nobody knows resolve to the non-cacheable
// literal evaluator.
func (r *Registry) Resolve(name string) (Evaluator, bool) {
	if fn, cacheable, ok := r.table.Lookup(name); ok {
		return Builtin(name, fn), cacheable
	}
	for _, src := range r.sources {
		if cacheable, ok := src.Lookup(name); ok {
			return Plugin(name, src), cacheable
		}
	}
	return Literal(name), false
}
