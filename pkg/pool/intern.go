package pool

// Interner returns one shared string per distinct byte sequence, up to a
// bound on distinct values. Past the bound new values are copied, not
// remembered, so high-cardinality input costs one map probe per value.
//
// An Interner is not safe for concurrent use.
type Interner struct {
	strings map[string]string
	maxSize int
	hits    int64
	misses  int64
}

// NewInterner creates an interner remembering at most maxSize values.
func NewInterner(maxSize int) *Interner {
	return &Interner{
		strings: make(map[string]string),
		maxSize: maxSize,
	}
}

// Intern returns a string equal to b.
func (in *Interner) Intern(b []byte) string {
	// The lookup converts b without allocating.
	if s, ok := in.strings[string(b)]; ok {
		in.hits++
		return s
	}
	in.misses++
	s := string(b)
	if len(in.strings) < in.maxSize {
		in.strings[s] = s
	}
	return s
}

// Len returns the number of values remembered.
func (in *Interner) Len() int { return len(in.strings) }

// Stats returns the number of Intern calls answered from memory and the
// number that allocated.
func (in *Interner) Stats() (hits, misses int64) { return in.hits, in.misses }
