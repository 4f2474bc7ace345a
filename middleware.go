package jaat

// ──────────────────────────────────────────────
// Turn middleware: onion pipeline around reply building
// ──────────────────────────────────────────────
//
// Each middleware wraps the next layer. Call next() to build the reply;
// skip it and set tc.Reply to answer directly.
//
//	reg := NewRegistry(kv, WithMiddleware(func(tc *TurnContext, next NextFunc) {
//	    start := time.Now()
//	    next()
//	    log.Printf("%s took %s", tc.RequestType, time.Since(start))
//	}))

// NextFunc proceeds to the next middleware or the builder.
type NextFunc func()

// TurnMiddleware runs once per classified turn. It may read or rewrite
// tc.Reply after next returns.
type TurnMiddleware func(tc *TurnContext, next NextFunc)

// Pipeline builds and executes an onion-model call chain.
type Pipeline struct {
	middlewares []TurnMiddleware
}

// NewPipeline creates a pipeline with mws in call order.
func NewPipeline(mws ...TurnMiddleware) *Pipeline {
	p := &Pipeline{}
	for _, mw := range mws {
		p.Use(mw)
	}
	return p
}

// Use appends a middleware; nil is ignored.
func (p *Pipeline) Use(mw TurnMiddleware) {
	if mw != nil {
		p.middlewares = append(p.middlewares, mw)
	}
}

// Len returns the number of registered middlewares.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.middlewares)
}

// Execute runs the chain ending with core:
//
//	mw[0].before → mw[1].before → core → mw[1].after → mw[0].after
func (p *Pipeline) Execute(tc *TurnContext, core func()) {
	if p.Len() == 0 {
		core()
		return
	}
	chain := core
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw := p.middlewares[i]
		next := chain
		chain = func() { mw(tc, next) }
	}
	chain()
}

// WithMiddleware appends turn middlewares to the mode's pipeline.
func WithMiddleware(mws ...TurnMiddleware) ModeOption {
	return func(m *Mode) {
		if m.pipeline == nil {
			m.pipeline = NewPipeline()
		}
		for _, mw := range mws {
			m.pipeline.Use(mw)
		}
	}
}
