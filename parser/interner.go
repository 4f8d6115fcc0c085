package parser

// Interner deduplicates strings. A records file repeats the same few
// currency codes and provider names on every price line, so interning them
// keeps one copy of each.
type Interner struct {
	pool map[string]string
}

// NewInterner creates a new string interner with the given initial capacity.
func NewInterner(capacity int) *Interner {
	return &Interner{
		pool: make(map[string]string, capacity),
	}
}

// Intern returns the canonical instance of s.
func (i *Interner) Intern(s string) string {
	if interned, ok := i.pool[s]; ok {
		return interned
	}
	i.pool[s] = s
	return s
}

// InternBytes converts b to a string and interns it.
func (i *Interner) InternBytes(b []byte) string {
	// The compiler avoids allocating for string(b) in a map index.
	if interned, ok := i.pool[string(b)]; ok {
		return interned
	}
	s := string(b)
	i.pool[s] = s
	return s
}

// Size returns the number of unique strings in the pool.
func (i *Interner) Size() int {
	return len(i.pool)
}
