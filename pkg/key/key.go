/*
Package key implements composite ordered keys and key ranges, the
granularity at which the router (pkg/router) and lock manager
(pkg/lock) both operate.

A Key is an ordered sequence of typed Fields — not necessarily all of
the same concrete type, unlike shore-kits' key_wrapper_t<DataType>
(dora/key.h), which fixed one type per key. Field is a small struct
holding either an int64 or a string (tagged by IsStr), which lets one
Key type serve every table without a template instantiation per table,
at the cost of a kind check on every field comparison.

Comparison follows key_wrapper_t's convention: keys are compared
field-by-field in order, and a shorter key that agrees with a longer
key on every field it has is "less than" the longer one — this is what
lets a 2-field prefix key compare less than a 3-field key sharing the
same first two fields, and is the basis of PrefixCompare.
*/
package key

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Field is one component of a composite key. Supported concrete types
// are int64 and string; both are comparable and have a stable byte
// encoding.
type Field struct {
	Int    int64
	Str    string
	IsStr  bool
}

// Int returns an integer field.
func Int(v int64) Field { return Field{Int: v} }

// Str returns a string field.
func Str(v string) Field { return Field{Str: v, IsStr: true} }

func (f Field) compare(o Field) int {
	if f.IsStr != o.IsStr {
		panic("key: comparing fields of different kinds")
	}
	if f.IsStr {
		return bytes.Compare([]byte(f.Str), []byte(o.Str))
	}
	switch {
	case f.Int < o.Int:
		return -1
	case f.Int > o.Int:
		return 1
	default:
		return 0
	}
}

func (f Field) String() string {
	if f.IsStr {
		return f.Str
	}
	return fmt.Sprintf("%d", f.Int)
}

// Key is a composite, ordered key. A Key built with a subset of
// fields sharing a prefix with another Key's fields is a valid
// partial/prefix key for range scans.
type Key struct {
	Table  string
	Fields []Field
}

// New builds a Key for the given table from a sequence of fields.
func New(table string, fields ...Field) Key {
	return Key{Table: table, Fields: fields}
}

// Compare returns -1, 0, or 1 following lexicographic order over
// fields, with the shorter key considered less when one is a strict
// prefix of the other — mirroring key_wrapper_t<DataType>::operator<.
func Compare(a, b Key) int {
	n := len(a.Fields)
	if len(b.Fields) < n {
		n = len(b.Fields)
	}
	for i := 0; i < n; i++ {
		if c := a.Fields[i].compare(b.Fields[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.Fields) < len(b.Fields):
		return -1
	case len(a.Fields) > len(b.Fields):
		return 1
	default:
		return 0
	}
}

// PrefixCompare compares only the fields present in the shorter key,
// treating it as a prefix match candidate against the longer key. A
// 2-field key prefix-compares equal to a 3-field key that shares the
// same first two fields.
func PrefixCompare(a, b Key) int {
	n := len(a.Fields)
	if len(b.Fields) < n {
		n = len(b.Fields)
	}
	for i := 0; i < n; i++ {
		if c := a.Fields[i].compare(b.Fields[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Bytes returns a stable byte encoding suitable for use as a lock-table
// map key. Integer fields are big-endian encoded so that byte-order
// comparison agrees with numeric order; string fields are length
// prefixed to avoid ambiguous concatenation.
func (k Key) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(k.Table)
	buf.WriteByte('|')
	for _, f := range k.Fields {
		if f.IsStr {
			buf.WriteByte('s')
			var lenb [4]byte
			binary.BigEndian.PutUint32(lenb[:], uint32(len(f.Str)))
			buf.Write(lenb[:])
			buf.WriteString(f.Str)
		} else {
			buf.WriteByte('i')
			var vb [8]byte
			binary.BigEndian.PutUint64(vb[:], uint64(f.Int)^(1<<63))
			buf.Write(vb[:])
		}
	}
	return buf.Bytes()
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	var buf bytes.Buffer
	buf.WriteString(k.Table)
	buf.WriteByte('(')
	for i, f := range k.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(f.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

// Range is an inclusive [Low, High] key range belonging to one table,
// used both to describe a partition's owned key space (§3 Partition)
// and for scan bounds (§4.10).
type Range struct {
	Table     string
	Low, High Key
}

// Contains reports whether k falls within the range, inclusive on
// both ends. Membership is O(field count), as required by §4.2.
func (r Range) Contains(k Key) bool {
	if k.Table != r.Table {
		return false
	}
	return Compare(r.Low, k) <= 0 && Compare(k, r.High) <= 0
}
