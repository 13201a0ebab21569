package blackboard

// ProgramCache stores compiled script programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache on the blackboard.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *boardConfig) {
		cfg.programCache = cache
	}
}
