package alloc

// UsageLedger tracks per-stakeholder allocated slot counts within the
// current planning window. Only confirmed allocation runs mutate it, under
// the engine's run lock; simulations operate on Clone()s and discard them.
type UsageLedger struct {
	counts map[string]int
}

// NewUsageLedger returns an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{counts: make(map[string]int)}
}

// Count returns the allocated slot count for a requester.
func (l *UsageLedger) Count(requesterID string) int {
	return l.counts[requesterID]
}

// Charge records one allocated slot for a requester.
func (l *UsageLedger) Charge(requesterID string) {
	l.counts[requesterID]++
}

// Total returns the total allocated slots across all requesters.
func (l *UsageLedger) Total() int {
	sum := 0
	for _, c := range l.counts {
		sum += c
	}
	return sum
}

// Clone returns an independent copy.
func (l *UsageLedger) Clone() *UsageLedger {
	cp := NewUsageLedger()
	for k, v := range l.counts {
		cp.counts[k] = v
	}
	return cp
}
