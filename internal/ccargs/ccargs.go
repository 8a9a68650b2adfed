// Package ccargs assembles compiler and linker argument lists. Arguments
// accumulate as structured tokens and are rendered to command form only at
// the invocation point.
package ccargs

import "strings"

// Compile accumulates compile-side arguments.
type Compile struct {
	flags    []string
	defines  []string
	includes []string
}

// AddFlags appends an opaque whitespace-separated flag string, keeping
// token order.
func (c *Compile) AddFlags(raw string) {
	c.flags = append(c.flags, strings.Fields(raw)...)
}

// Define appends a preprocessor definition. Empty symbols are ignored.
func (c *Compile) Define(sym string) {
	if sym == "" {
		return
	}
	c.defines = append(c.defines, sym)
}

// Include appends an include directory.
func (c *Compile) Include(dir string) {
	if dir == "" {
		return
	}
	c.includes = append(c.includes, dir)
}

// Args renders the accumulated arguments: base flags, then -D defines,
// then -I include directories, each group in insertion order.
func (c *Compile) Args() []string {
	args := make([]string, 0, len(c.flags)+len(c.defines)+len(c.includes))
	args = append(args, c.flags...)
	for _, d := range c.defines {
		args = append(args, "-D"+d)
	}
	for _, dir := range c.includes {
		args = append(args, "-I"+dir)
	}
	return args
}

// Link accumulates link-side arguments.
type Link struct {
	flags []string
	libs  []string
}

// AddFlags appends an opaque whitespace-separated flag string, keeping
// token order.
func (l *Link) AddFlags(raw string) {
	l.flags = append(l.flags, strings.Fields(raw)...)
}

// Lib appends a library. Order is preserved exactly as inserted; the
// linker resolves symbols left to right, so callers append libraries in
// dependency order. Duplicates are kept, repetition is harmless at link
// time.
func (l *Link) Lib(name string) {
	if name == "" {
		return
	}
	l.libs = append(l.libs, name)
}

// Args renders the accumulated arguments: base flags, then -l libraries,
// each group in insertion order.
func (l *Link) Args() []string {
	args := make([]string, 0, len(l.flags)+len(l.libs))
	args = append(args, l.flags...)
	for _, lib := range l.libs {
		args = append(args, "-l"+lib)
	}
	return args
}
