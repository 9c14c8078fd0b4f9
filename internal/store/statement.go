package store

import (
	"strconv"
	"strings"
)

// UpsertStatement builds a multi-row upsert of rows (key, doc) pairs into c.
// A conflicting key has its document replaced.
func UpsertStatement(c Collection, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(c.Table)
	b.WriteString(" (")
	b.WriteString(c.KeyColumn)
	b.WriteString(", doc) VALUES ")
	writePlaceholders(&b, rows, 2)
	b.WriteString(" ON CONFLICT (")
	b.WriteString(c.KeyColumn)
	b.WriteString(") DO UPDATE SET doc = EXCLUDED.doc")
	return b.String()
}

// NodeUpsertStatement builds a multi-row upsert of (uuid, flow_uuid, doc)
// triples into the nodes table.
func NodeUpsertStatement(rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO " + nodesTable + " (uuid, flow_uuid, doc) VALUES ")
	writePlaceholders(&b, rows, 3)
	b.WriteString(" ON CONFLICT (uuid) DO UPDATE SET flow_uuid = EXCLUDED.flow_uuid, doc = EXCLUDED.doc")
	return b.String()
}

// writePlaceholders writes ($1, $2), ($3, $4), ... for rows tuples of width
// columns.
func writePlaceholders(b *strings.Builder, rows, width int) {
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
}
