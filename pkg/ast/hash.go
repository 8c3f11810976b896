package ast

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Hash128 is a 128-bit content hash, matching the width the teacher's term
// encoder uses for its own hashed identifiers.
type Hash128 [16]byte

// StableHash returns a content hash over sel suitable for keying pipeline
// caches: two structurally equal ASTs (per Equal) hash equal. It walks the
// tree writing a canonical byte encoding and hashes the result with xxh3,
// the same 128-bit hash the teacher's TermEncoder uses for RDF terms.
func (sel *Select) StableHash() Hash128 {
	var buf bytes.Buffer
	writeSelect(&buf, sel)
	sum := xxh3.Hash128(buf.Bytes())
	var out Hash128
	binary.BigEndian.PutUint64(out[0:8], sum.Hi)
	binary.BigEndian.PutUint64(out[8:16], sum.Lo)
	return out
}

func writeSelect(buf *bytes.Buffer, sel *Select) {
	if sel == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeString(buf, sel.Table)
	writeUvarint(buf, uint64(len(sel.Order)))
	for _, o := range sel.Order {
		writeString(buf, o.Column)
		writeBool(buf, o.Desc)
	}
	if sel.Start == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeBool(buf, sel.Start.Exclusive)
		writeUvarint(buf, uint64(len(sel.Start.Row)))
		for _, v := range sel.Start.Row {
			writeString(buf, fmt.Sprintf("%T:%v", v, v))
		}
	}
	if sel.Limit == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeUvarint(buf, uint64(*sel.Limit))
	}
	writeCondition(buf, sel.Where)
	writeUvarint(buf, uint64(len(sel.Related)))
	for _, r := range sel.Related {
		writeString(buf, r.Alias)
		writeCorrelation(buf, r.Correlation)
		writeSelect(buf, r.Select)
	}
}

func writeCorrelation(buf *bytes.Buffer, c Correlation) {
	writeUvarint(buf, uint64(len(c.Fields)))
	for _, f := range c.Fields {
		writeString(buf, f.Parent)
		writeString(buf, f.Child)
	}
}

func writeCondition(buf *bytes.Buffer, c Condition) {
	switch v := c.(type) {
	case nil:
		buf.WriteByte(0)
	case Simple:
		buf.WriteByte(1)
		writeOperand(buf, v.Left)
		writeString(buf, string(v.Op))
		writeOperand(buf, v.Right)
	case And:
		buf.WriteByte(2)
		writeUvarint(buf, uint64(len(v.Conds)))
		for _, inner := range v.Conds {
			writeCondition(buf, inner)
		}
	case Or:
		buf.WriteByte(3)
		writeUvarint(buf, uint64(len(v.Conds)))
		for _, inner := range v.Conds {
			writeCondition(buf, inner)
		}
	case Correlated:
		buf.WriteByte(4)
		writeCorrelation(buf, v.Correlation)
		writeBool(buf, v.Flip)
		writeSelect(buf, v.Select)
	case Scalar:
		buf.WriteByte(5)
		writeOperand(buf, v.Left)
		writeString(buf, string(v.Op))
		writeSelect(buf, v.Select)
	default:
		buf.WriteByte(255)
	}
}

func writeOperand(buf *bytes.Buffer, o Operand) {
	switch v := o.(type) {
	case Column:
		buf.WriteByte(1)
		writeString(buf, v.Name)
	case Literal:
		buf.WriteByte(2)
		writeString(buf, fmt.Sprintf("%T:%v", v.Value, v.Value))
	case Param:
		buf.WriteByte(3)
		writeString(buf, v.Name)
	default:
		buf.WriteByte(0)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}
