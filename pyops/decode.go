package pyops

import (
	"fmt"
	"iter"
)

type Instr struct {
	// Offset is the start of the instruction, EXTENDED_ARG prefixes included.
	Offset int
	Next   int
	Op     *Op
	Arg    int
}

// Target returns the absolute jump target of a jump instruction.
func (i Instr) Target() int {
	switch i.Op.Category {
	case CategoryJRel:
		return i.Next + i.Arg
	case CategoryJAbs:
		return i.Arg
	}
	return -1
}

func (i Instr) String() string {
	if i.Op.Category == CategoryNone {
		return fmt.Sprintf("%d %s", i.Offset, i.Op.Name)
	}
	return fmt.Sprintf("%d %s %d", i.Offset, i.Op.Name, i.Arg)
}

// Decode reads the instruction starting at offset, folding EXTENDED_ARG prefixes into its argument.
func (d *Dialect) Decode(code []byte, offset int) (Instr, error) {
	if d.Wordcode {
		return d.decodeWordcode(code, offset)
	}
	return d.decodeVariable(code, offset)
}

func (d *Dialect) decodeWordcode(code []byte, offset int) (Instr, error) {
	ext := 0
	pos := offset
	for {
		if pos+1 >= len(code) {
			return Instr{}, fmt.Errorf("%w at offset %d", ErrTruncated, pos)
		}
		number := code[pos]
		arg := ext | int(code[pos+1])
		pos += 2
		if number == d.ExtendedArg {
			ext = arg << 8
			continue
		}
		op := d.byNumber[number]
		if op == nil {
			return Instr{}, fmt.Errorf("%w %d at offset %d", ErrUnknownOpcode, number, pos-2)
		}
		if number < d.HaveArgument {
			arg = 0
		}
		return Instr{
			Offset: offset,
			Next:   pos,
			Op:     op,
			Arg:    arg,
		}, nil
	}
}

func (d *Dialect) decodeVariable(code []byte, offset int) (Instr, error) {
	ext := 0
	pos := offset
	for {
		if pos >= len(code) {
			return Instr{}, fmt.Errorf("%w at offset %d", ErrTruncated, pos)
		}
		number := code[pos]
		op := d.byNumber[number]
		if op == nil {
			return Instr{}, fmt.Errorf("%w %d at offset %d", ErrUnknownOpcode, number, pos)
		}
		if number < d.HaveArgument {
			return Instr{
				Offset: offset,
				Next:   pos + 1,
				Op:     op,
			}, nil
		}
		if pos+2 >= len(code) {
			return Instr{}, fmt.Errorf("%w at offset %d", ErrTruncated, pos)
		}
		arg := ext | int(code[pos+1]) | int(code[pos+2])<<8
		pos += 3
		if number == d.ExtendedArg {
			ext = arg << 16
			continue
		}
		return Instr{
			Offset: offset,
			Next:   pos,
			Op:     op,
			Arg:    arg,
		}, nil
	}
}

// Instructions decodes code from the start, yielding the first error and stopping.
func (d *Dialect) Instructions(code []byte) iter.Seq2[Instr, error] {
	return func(yield func(Instr, error) bool) {
		for offset := 0; offset < len(code); {
			instr, err := d.Decode(code, offset)
			if err != nil {
				yield(Instr{}, err)
				return
			}
			if !yield(instr, nil) {
				return
			}
			offset = instr.Next
		}
	}
}

// Encode appends one instruction with the EXTENDED_ARG prefixes its argument needs.
func (d *Dialect) Encode(buf []byte, op *Op, arg int) []byte {
	if d.Wordcode {
		if op.Number < d.HaveArgument {
			return append(buf, op.Number, 0)
		}
		var prefixes []byte
		for shift := 24; shift > 0; shift -= 8 {
			if arg>>shift != 0 || len(prefixes) > 0 {
				prefixes = append(prefixes, d.ExtendedArg, byte(arg>>shift))
			}
		}
		buf = append(buf, prefixes...)
		return append(buf, op.Number, byte(arg))
	}
	if op.Number < d.HaveArgument {
		return append(buf, op.Number)
	}
	if arg>>16 != 0 {
		buf = append(buf, d.ExtendedArg, byte(arg>>16), byte(arg>>24))
	}
	return append(buf, op.Number, byte(arg), byte(arg>>8))
}

// EncodedSize is the byte length Encode produces.
func (d *Dialect) EncodedSize(op *Op, arg int) int {
	if d.Wordcode {
		if op.Number < d.HaveArgument {
			return 2
		}
		n := 2
		for shift := 8; shift < 32; shift += 8 {
			if arg>>shift != 0 {
				n += 2
			}
		}
		return n
	}
	if op.Number < d.HaveArgument {
		return 1
	}
	if arg>>16 != 0 {
		return 6
	}
	return 3
}
