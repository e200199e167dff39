package camera

// LockSet holds the fields with an uncommitted edit. A locked field is never
// overwritten by a refresh. There is no timeout: an edit abandoned without
// committing keeps its field frozen until it is committed or released.
type LockSet struct {
	fields map[Field]struct{}
}

func (l *LockSet) Add(f Field) {
	if l.fields == nil {
		l.fields = make(map[Field]struct{})
	}
	l.fields[f] = struct{}{}
}

func (l *LockSet) Remove(f Field) {
	delete(l.fields, f)
}

func (l *LockSet) Has(f Field) bool {
	_, ok := l.fields[f]
	return ok
}

func (l *LockSet) snapshot() map[Field]bool {
	out := make(map[Field]bool, len(l.fields))
	for f := range l.fields {
		out[f] = true
	}
	return out
}
