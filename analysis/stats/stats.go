// Package stats gathers the statistics reports of the analysis components.
package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/cegar/utils"

	"github.com/fatih/color"
)

// Printer is implemented by the statistics of every component.
type Printer interface {
	Name() string
	Print(w io.Writer)
}

// Collector prints registered statistics in registration order.
type Collector struct {
	printers []Printer
}

func (c *Collector) Register(ps ...Printer) {
	for _, p := range ps {
		if p != nil {
			c.printers = append(c.printers, p)
		}
	}
}

var header = func(is ...interface{}) string {
	return utils.CanColorize(color.New(color.Bold).SprintFunc())(is...)
}

func (c *Collector) Print(w io.Writer) {
	for i, p := range c.printers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, header(p.Name()))
		fmt.Fprintln(w, strings.Repeat("-", len(p.Name())))
		p.Print(w)
	}
}

func (c *Collector) String() string {
	sb := &strings.Builder{}
	c.Print(sb)
	return sb.String()
}

// Line prints a single aligned statistics line.
func Line(w io.Writer, name string, value any) {
	fmt.Fprintf(w, "  %-34s %v\n", name+":", value)
}
