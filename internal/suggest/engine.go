// Package suggest derives conversation-starter prompts from the active
// knowledge domain configuration.
package suggest

import (
	"math/rand"
	"time"
)

// DefaultDomain is used when no domain is active.
const DefaultDomain = "lunar"

const suggestionCount = 4

// Engine picks a small set of starter prompts: half from the active
// domain's pool, half from the domain-independent personal pool. A fixed
// random source makes the selection deterministic; otherwise it is
// uniformly random via Fisher-Yates.
type Engine struct {
	rng        *rand.Rand
	pools      map[string][]string
	personal   []string
	current    []string
	lastDomain string
}

func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		rng:      rng,
		pools:    domainStarters,
		personal: personalStarters,
	}
}

// Next returns the current suggestions, regenerating them when the
// active domain changed since the last call (or on first use). Only the
// first active domain matters; the system runs single-domain.
func (e *Engine) Next(activeDomains []string) []string {
	domain := DefaultDomain
	if len(activeDomains) > 0 {
		domain = activeDomains[0]
	}
	if domain == e.lastDomain && len(e.current) > 0 {
		return e.current
	}
	e.lastDomain = domain
	e.regenerate(domain)
	return e.current
}

// Regenerate forces a fresh draw for the current domain, e.g. for a new
// session.
func (e *Engine) Regenerate() {
	if e.lastDomain == "" {
		e.lastDomain = DefaultDomain
	}
	e.regenerate(e.lastDomain)
}

func (e *Engine) regenerate(domain string) {
	pool, ok := e.pools[domain]
	if !ok {
		pool = e.pools[DefaultDomain]
	}

	fromDomain := suggestionCount / 2
	picks := make([]string, 0, suggestionCount)
	picks = append(picks, e.draw(pool, fromDomain)...)
	picks = append(picks, e.draw(e.personal, suggestionCount-fromDomain)...)
	e.current = picks
}

func (e *Engine) draw(pool []string, n int) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	Shuffle(e.rng, shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// Shuffle permutes items in place with the Fisher-Yates algorithm: each
// of the n! orderings is equally likely.
func Shuffle(rng *rand.Rand, items []string) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
