package sema

import "github.com/f12lang/f12/internal/ast"

// dispenser hands out byte-offset slots in declaration order, advancing by
// each declared type's size (spec.md §4.3: "a *global* dispenser advances
// by sizeof(type) for each global variable, and a *stack* dispenser is
// reset at each function entry").
type dispenser struct{ next int }

func (d *dispenser) take(t ast.Type) int {
	slot := d.next
	d.next += ast.SizeOf(t)
	return slot
}

func (d *dispenser) size() int { return d.next }
