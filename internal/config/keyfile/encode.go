package keyfile

import (
	"bufio"
	"io"
)

// Encode writes doc to w. The default section comes first without a
// header, the other sections follow in insertion order separated by a
// blank line.
func Encode(w io.Writer, doc *Document) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	blocks := 0
	if def, ok := doc.Lookup(""); ok && def.Len() > 0 {
		writeVars(bw, def)
		blocks++
	}

	for _, s := range doc.sections {
		if s.name == "" {
			continue
		}
		if blocks > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteByte('[')
		bw.WriteString(s.name)
		bw.WriteString("]\n")
		writeVars(bw, s)
		blocks++
	}

	err := bw.Flush()
	return cw.n, err
}

func writeVars(bw *bufio.Writer, s *Section) {
	for _, k := range s.keys {
		bw.WriteString(k)
		bw.WriteString(" = ")
		bw.WriteString(s.values[k])
		bw.WriteByte('\n')
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
