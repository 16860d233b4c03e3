package ticket

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Op is one ESC/POS formatting step.
type Op int

const (
	OpInit Op = iota
	OpAlign
	OpSize
	OpBold
	OpInvert
	OpText
	OpNewline
	OpCut
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return "left"
}

type Command struct {
	Op   Op
	Arg  int
	Text string
}

// Encoder collects formatting commands and encodes them for an ESC/POS
// receipt printer using code page 437.
type Encoder struct {
	cmds []Command
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) add(c Command) *Encoder {
	e.cmds = append(e.cmds, c)
	return e
}

func (e *Encoder) Initialize() *Encoder       { return e.add(Command{Op: OpInit}) }
func (e *Encoder) Align(a Alignment) *Encoder { return e.add(Command{Op: OpAlign, Arg: int(a)}) }
func (e *Encoder) Bold(on bool) *Encoder      { return e.add(Command{Op: OpBold, Arg: flag(on)}) }
func (e *Encoder) Invert(on bool) *Encoder    { return e.add(Command{Op: OpInvert, Arg: flag(on)}) }
func (e *Encoder) Text(s string) *Encoder     { return e.add(Command{Op: OpText, Text: s}) }
func (e *Encoder) Newline() *Encoder          { return e.add(Command{Op: OpNewline}) }
func (e *Encoder) Line(s string) *Encoder     { return e.Text(s).Newline() }
func (e *Encoder) Cut() *Encoder              { return e.add(Command{Op: OpCut}) }
func (e *Encoder) Commands() []Command        { return append([]Command(nil), e.cmds...) }
func (e *Encoder) Encode() []byte             { return Encode(e.cmds) }

// Size sets character magnification; width and height are clamped to 1..8.
func (e *Encoder) Size(width, height int) *Encoder {
	return e.add(Command{Op: OpSize, Arg: clamp(width)<<4 | clamp(height)})
}

const (
	esc = 0x1b
	gs  = 0x1d
	lf  = 0x0a
)

func Encode(cmds []Command) []byte {
	out := make([]byte, 0, 512)
	for _, c := range cmds {
		switch c.Op {
		case OpInit:
			out = append(out, esc, '@', esc, 't', 0) // reset, code page 437
		case OpAlign:
			out = append(out, esc, 'a', byte(c.Arg))
		case OpSize:
			out = append(out, gs, '!', byte(((c.Arg>>4)-1)<<4|((c.Arg&0x0f)-1)))
		case OpBold:
			out = append(out, esc, 'E', byte(c.Arg))
		case OpInvert:
			out = append(out, gs, 'B', byte(c.Arg))
		case OpText:
			out = appendCP437(out, c.Text)
		case OpNewline:
			out = append(out, lf)
		case OpCut:
			out = append(out, gs, 'V', 0)
		}
	}
	return out
}

// appendCP437 writes s in code page 437. Control characters become spaces so
// order data can never inject printer commands; runes outside the code page
// become '?'.
func appendCP437(out []byte, s string) []byte {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			out = append(out, ' ')
			continue
		}
		b, ok := charmap.CodePage437.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// Dump renders commands as readable text: formatting steps appear as
// bracketed markers, text and line feeds as themselves.
func Dump(cmds []Command) string {
	var sb strings.Builder
	for _, c := range cmds {
		switch c.Op {
		case OpInit:
			sb.WriteString("[init]")
		case OpAlign:
			fmt.Fprintf(&sb, "[align %s]", Alignment(c.Arg))
		case OpSize:
			fmt.Fprintf(&sb, "[size %dx%d]", c.Arg>>4, c.Arg&0x0f)
		case OpBold:
			fmt.Fprintf(&sb, "[bold %s]", onOff(c.Arg))
		case OpInvert:
			fmt.Fprintf(&sb, "[invert %s]", onOff(c.Arg))
		case OpText:
			sb.WriteString(c.Text)
		case OpNewline:
			sb.WriteByte('\n')
		case OpCut:
			sb.WriteString("[cut]")
		}
	}
	return sb.String()
}

// PlainText keeps only the printed characters.
func PlainText(cmds []Command) string {
	var sb strings.Builder
	for _, c := range cmds {
		switch c.Op {
		case OpText:
			sb.WriteString(c.Text)
		case OpNewline:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func flag(on bool) int {
	if on {
		return 1
	}
	return 0
}

func onOff(v int) string {
	if v != 0 {
		return "on"
	}
	return "off"
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
