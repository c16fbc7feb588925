package render

import (
	"strconv"
	"strings"
)

// Terminal setup and teardown: the alternate screen with a hidden cursor.
const (
	EnterScreen = "\x1b[?1049h\x1b[?25l\x1b[2J"
	LeaveScreen = "\x1b[?25h\x1b[?1049l"
)

// HalfBlock paints the upper pixel in the foreground colour and the lower
// pixel in the background colour.
const HalfBlock = '▀'

// MoveTo returns the sequence placing the cursor at row, col (1-based).
func MoveTo(row, col int) string {
	return "\x1b[" + strconv.Itoa(row) + ";" + strconv.Itoa(col) + "H"
}

type style struct {
	fg, bg [3]uint8
	bold   bool
}

func (c Cell) style() style {
	return style{fg: [3]uint8{c.FgR, c.FgG, c.FgB}, bg: [3]uint8{c.BgR, c.BgG, c.BgB}, bold: c.Bold}
}

// cellWriter accumulates changed cells. The cursor is only moved when a cell
// does not directly follow the previous one, and colours are only restated
// when they differ from the last cell written.
type cellWriter struct {
	sb       strings.Builder
	row, col int
	last     style
	styled   bool
}

func newCellWriter() *cellWriter {
	w := &cellWriter{row: -1}
	w.sb.Grow(16384)
	return w
}

// put writes c at the 0-based row and col.
func (w *cellWriter) put(row, col int, c Cell) {
	if row != w.row || col != w.col {
		w.sb.WriteString(MoveTo(row+1, col+1))
	}
	if st := c.style(); !w.styled || st != w.last {
		w.sgr(st)
		w.last, w.styled = st, true
	}
	w.sb.WriteRune(c.Ch)
	w.row, w.col = row, col+1
}

// sgr resets attributes and sets both 24-bit colours in one sequence.
func (w *cellWriter) sgr(st style) {
	w.sb.WriteString("\x1b[0")
	if st.bold {
		w.sb.WriteString(";1")
	}
	w.rgb(";38;2", st.fg)
	w.rgb(";48;2", st.bg)
	w.sb.WriteByte('m')
}

func (w *cellWriter) rgb(prefix string, c [3]uint8) {
	w.sb.WriteString(prefix)
	for _, v := range c {
		w.sb.WriteByte(';')
		w.sb.WriteString(strconv.Itoa(int(v)))
	}
}

// String returns the output, ending with an attribute reset when any cell
// was written.
func (w *cellWriter) String() string {
	if w.sb.Len() > 0 {
		w.sb.WriteString("\x1b[0m")
	}
	return w.sb.String()
}
