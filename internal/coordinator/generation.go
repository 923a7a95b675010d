package coordinator

// Ticket identifies the cycle that started a piece of asynchronous work.
type Ticket struct {
	generation uint64
}

// Generation returns the generation the ticket was issued for.
func (t Ticket) Generation() uint64 {
	return t.generation
}

// Generations is a monotonically increasing request generation counter.
// It is owned by the coordinator loop and is not safe for concurrent use.
type Generations struct {
	current uint64
}

// Next advances the counter and returns a ticket for the new generation.
func (g *Generations) Next() Ticket {
	g.current++
	return Ticket{generation: g.current}
}

// Invalidate advances the counter without issuing a ticket, making every
// outstanding ticket stale.
func (g *Generations) Invalidate() {
	g.current++
}

// Current returns the current generation.
func (g *Generations) Current() uint64 {
	return g.current
}

// Valid reports whether t still belongs to the current generation.
func (g *Generations) Valid(t Ticket) bool {
	return t.generation != 0 && t.generation == g.current
}
