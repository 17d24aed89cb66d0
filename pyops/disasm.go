package pyops

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/reusee/pyrun/pycode"
)

type palette struct {
	line    *color.Color
	target  *color.Color
	opname  *color.Color
	operand *color.Color
}

func newPalette(w io.Writer) palette {
	p := palette{
		line:    color.New(color.FgYellow),
		target:  color.New(color.FgGreen, color.Bold),
		opname:  color.New(color.FgCyan),
		operand: color.New(color.FgMagenta),
	}
	enable := false
	if f, ok := w.(*os.File); ok {
		enable = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, c := range []*color.Color{p.line, p.target, p.opname, p.operand} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Operand describes the resolved operand of instr in code, the way dis prints it in parentheses.
func (d *Dialect) Operand(code *pycode.CodeUnit, instr Instr) string {
	switch instr.Op.Category {
	case CategoryConst:
		if instr.Arg < len(code.Consts) {
			return pycode.Repr(code.Consts[instr.Arg])
		}
	case CategoryName:
		if instr.Arg < len(code.Names) {
			return code.Names[instr.Arg]
		}
	case CategoryLocal:
		if instr.Arg < len(code.VarNames) {
			return code.VarNames[instr.Arg]
		}
	case CategoryFree:
		if instr.Arg < len(code.CellVars) {
			return code.CellVars[instr.Arg]
		}
		if i := instr.Arg - len(code.CellVars); i < len(code.FreeVars) {
			return code.FreeVars[i]
		}
	case CategoryJRel:
		return fmt.Sprintf("to %d", instr.Target())
	case CategoryCompare:
		if op, err := d.CompareOp(instr.Arg); err == nil {
			return op
		}
	}
	return ""
}

// Disassemble writes a dis-style listing of code and its nested code constants.
func (d *Dialect) Disassemble(w io.Writer, code *pycode.CodeUnit) error {
	p := newPalette(w)
	if err := d.disassemble(w, p, code); err != nil {
		return err
	}
	for _, c := range code.Consts {
		nested, ok := c.(*pycode.CodeUnit)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "\nDisassembly of %s:\n", nested); err != nil {
			return err
		}
		if err := d.Disassemble(w, nested); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dialect) disassemble(w io.Writer, p palette, code *pycode.CodeUnit) error {
	starts := make(map[int]int)
	for s := range code.Lines() {
		starts[s.Offset] = s.Line
	}
	targets := make(map[int]bool)
	for instr, err := range d.Instructions(code.Code) {
		if err != nil {
			return err
		}
		if instr.Op.Category.IsJump() {
			targets[instr.Target()] = true
		}
	}

	for instr, err := range d.Instructions(code.Code) {
		if err != nil {
			return err
		}
		lineCol := "    "
		if line, ok := starts[instr.Offset]; ok {
			if instr.Offset > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			lineCol = p.line.Sprintf("%4d", line)
		}
		mark := "  "
		if targets[instr.Offset] {
			mark = p.target.Sprint(">>")
		}
		text := fmt.Sprintf("%s %s %4d %s", lineCol, mark, instr.Offset, p.opname.Sprintf("%-24s", instr.Op.Name))
		if instr.Op.Category != CategoryNone {
			text += fmt.Sprintf(" %4d", instr.Arg)
			if operand := d.Operand(code, instr); operand != "" {
				text += " (" + p.operand.Sprint(operand) + ")"
			}
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	return nil
}
