// # internal/engine/syntax/pool.go
package syntax

import (
	"sync"
	"time"

	"fern/internal/engine/language"
)

// Pool recycles Parser instances to avoid per-file setup overhead.
//
// Each pool is tied to a single language. For multi-language workloads,
// create one Pool per language and pick the pool via the registry.
//
// Usage:
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree, err := sp.Parse(ctx, src, nil)
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type Pool struct {
	lang *language.Language
	pool sync.Pool

	leases   map[*Parser]time.Time
	leasesMu sync.Mutex
}

// NewPool creates a pool for the given language. The language's tables
// are validated once here, so Get can hand out parsers unconditionally.
func NewPool(lang *language.Language) (*Pool, error) {
	if err := NewParser().SetLanguage(lang); err != nil {
		return nil, err
	}
	p := &Pool{
		lang:   lang,
		leases: make(map[*Parser]time.Time),
	}
	p.pool = sync.Pool{
		New: func() any {
			return NewParser()
		},
	}
	return p, nil
}

// Get retrieves a parser from the pool, or allocates a new one if the
// pool is empty. The returned parser is configured for the pool's
// language.
func (p *Pool) Get() *Parser {
	sp := p.pool.Get().(*Parser)
	// The language was validated at pool construction.
	_ = sp.SetLanguage(p.lang)

	p.leasesMu.Lock()
	p.leases[sp] = time.Now()
	p.leasesMu.Unlock()

	return sp
}

// Put returns a parser to the pool for reuse. The parser is reset first
// so no language reference is retained. Callers must not use sp after
// calling Put.
func (p *Pool) Put(sp *Parser) {
	if sp == nil {
		return
	}

	p.leasesMu.Lock()
	delete(p.leases, sp)
	p.leasesMu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}

// Active returns the number of currently leased parsers.
func (p *Pool) Active() int {
	p.leasesMu.Lock()
	defer p.leasesMu.Unlock()
	return len(p.leases)
}
