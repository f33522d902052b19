package compiler

import (
	"io"
	"log/slog"
)

// Context is the state of one compilation: the function table, the member
// validity table and the class declarations. Both passes receive it
// explicitly. A Context must not be shared between compilations.
type Context struct {
	Funcs   *FuncTable
	Members *MemberTable
	Logger  *slog.Logger

	classes    map[string]*ClassDecl
	classOrder []string
	certified  *Program // set by a successful Analyze
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sends pass diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func NewContext(opts ...Option) *Context {
	c := &Context{
		Funcs:   NewFuncTable(),
		Members: NewMemberTable(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		classes: map[string]*ClassDecl{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Class returns the declaration of the named class.
func (c *Context) Class(name string) (*ClassDecl, bool) {
	decl, ok := c.classes[name]
	return decl, ok
}

func (c *Context) addClass(decl *ClassDecl) bool {
	if _, exists := c.classes[decl.Name]; exists {
		return false
	}
	c.classes[decl.Name] = decl
	c.classOrder = append(c.classOrder, decl.Name)
	return true
}

// Analyzed reports whether Analyze certified a program in this context.
func (c *Context) Analyzed() bool {
	return c.certified != nil
}
