// Package snapshot implements the process-wide doubly-linked list of live
// read sequence numbers that bounds visibility for a consistent read.
package snapshot

// Snapshot is a single recorded sequence number, intrusively linked into
// its owning List. Readers treat Sequence as an upper bound on which
// internal-key versions are visible.
type Snapshot struct {
	Sequence   uint64
	prev, next *Snapshot
}

// List is a doubly-linked list of live snapshots anchored by a sentinel
// head node, ordered oldest-to-newest from head.next.
type List struct {
	head Snapshot
}

// New returns an empty snapshot list.
func New() *List {
	l := &List{}
	l.head.prev = &l.head
	l.head.next = &l.head
	return l
}

// Empty reports whether the list has no live snapshots.
func (l *List) Empty() bool {
	return l.head.next == &l.head
}

// Oldest returns the oldest live snapshot, or nil if the list is empty.
func (l *List) Oldest() *Snapshot {
	if l.Empty() {
		return nil
	}
	return l.head.next
}

// Newest returns the most recently created live snapshot, or nil if the
// list is empty.
func (l *List) Newest() *Snapshot {
	if l.Empty() {
		return nil
	}
	return l.head.prev
}

// New creates and links a new Snapshot at the newest end of the list.
func (l *List) New(seq uint64) *Snapshot {
	s := &Snapshot{Sequence: seq}
	tail := l.head.prev
	s.prev = tail
	s.next = &l.head
	tail.next = s
	l.head.prev = s
	return s
}

// Delete unlinks s from the list. s must belong to l; behavior is
// undefined (and will corrupt the list) otherwise.
func (l *List) Delete(s *Snapshot) {
	s.prev.next = s.next
	s.next.prev = s.prev
	s.prev = nil
	s.next = nil
}
