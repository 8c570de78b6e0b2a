package controls

// ChangeLog accumulates which attributes changed on which elements during
// one reporting interval. Purely additive bookkeeping: Record appends, Reset
// clears, nothing else mutates it. Insertion order is preserved both across
// elements and within each element's attribute list.
type ChangeLog struct {
	order   []string
	changes map[string][]string
}

func NewChangeLog() *ChangeLog {
	return &ChangeLog{changes: make(map[string][]string)}
}

// Record notes that the element's attribute was changed. Duplicate records
// are kept; the log reports every write, not the set of written attributes.
func (l *ChangeLog) Record(element, attribute string) {
	if _, ok := l.changes[element]; !ok {
		l.order = append(l.order, element)
	}
	l.changes[element] = append(l.changes[element], attribute)
}

// Elements returns the changed element names in first-recorded order.
func (l *ChangeLog) Elements() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Attributes returns the recorded attribute writes for one element, in
// record order. Nil if the element never appeared.
func (l *ChangeLog) Attributes(element string) []string {
	attrs, ok := l.changes[element]
	if !ok {
		return nil
	}
	out := make([]string, len(attrs))
	copy(out, attrs)
	return out
}

// Len reports the number of elements with at least one recorded change.
func (l *ChangeLog) Len() int { return len(l.order) }

// Reset clears the log for the next reporting interval.
func (l *ChangeLog) Reset() {
	l.order = l.order[:0]
	l.changes = make(map[string][]string)
}
