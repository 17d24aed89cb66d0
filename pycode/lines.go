package pycode

import (
	"iter"
	"strings"

	"fortio.org/safecast"
)

type LineStart struct {
	Offset int
	Line   int
}

// signedLines reports whether line deltas in the table are signed bytes.
// 2.x tables only ever grow.
func (c *CodeUnit) signedLines() bool {
	return !strings.HasPrefix(c.Dialect, "2.")
}

func (c *CodeUnit) lineDelta(b byte) int {
	if c.signedLines() && b >= 0x80 {
		return int(b) - 0x100
	}
	return int(b)
}

// LineAt returns the source line of the instruction at offset.
func (c *CodeUnit) LineAt(offset int) int {
	line := c.FirstLine
	addr := 0
	for i := 0; i+1 < len(c.LineTable); i += 2 {
		addr += int(c.LineTable[i])
		if addr > offset {
			break
		}
		line += c.lineDelta(c.LineTable[i+1])
	}
	return line
}

// Lines yields the offsets where a new source line starts.
func (c *CodeUnit) Lines() iter.Seq[LineStart] {
	return func(yield func(LineStart) bool) {
		last := -1
		line := c.FirstLine
		addr := 0
		for i := 0; i+1 < len(c.LineTable); i += 2 {
			if inc := int(c.LineTable[i]); inc != 0 {
				if line != last {
					if !yield(LineStart{Offset: addr, Line: line}) {
						return
					}
					last = line
				}
				addr += inc
			}
			line += c.lineDelta(c.LineTable[i+1])
		}
		if line != last {
			yield(LineStart{Offset: addr, Line: line})
		}
	}
}

// EncodeLineTable builds a line table from line starts sorted by offset.
func EncodeLineTable(firstLine int, starts []LineStart, signed bool) ([]byte, error) {
	var out []byte
	addr := 0
	line := firstLine
	for _, s := range starts {
		dAddr := s.Offset - addr
		dLine := s.Line - line
		next := s.Line
		if dAddr == 0 && dLine == 0 {
			continue
		}
		for dAddr > 255 {
			out = append(out, 255, 0)
			dAddr -= 255
		}
		a, err := safecast.Conv[byte](dAddr)
		if err != nil {
			return nil, err
		}
		if signed {
			for dLine > 127 {
				out = append(out, a, 127)
				a = 0
				dLine -= 127
			}
			for dLine < -128 {
				out = append(out, a, 0x80)
				a = 0
				dLine += 128
			}
			out = append(out, a, byte(int8(dLine)))
		} else {
			if dLine < 0 {
				dLine = 0
				next = line
			}
			for dLine > 255 {
				out = append(out, a, 255)
				a = 0
				dLine -= 255
			}
			l, err := safecast.Conv[byte](dLine)
			if err != nil {
				return nil, err
			}
			out = append(out, a, l)
		}
		addr = s.Offset
		line = next
	}
	return out, nil
}
