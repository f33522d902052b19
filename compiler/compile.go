package compiler

import (
	"github.com/llir/llvm/ir"
)

// Compile analyzes prog in a fresh context, generates IR for it and verifies
// the result.
func Compile(prog *Program, opts ...Option) (*ir.Module, error) {
	ctx := NewContext(opts...)
	if err := Analyze(ctx, prog); err != nil {
		return nil, err
	}
	m, err := Generate(ctx, prog)
	if err != nil {
		return nil, err
	}
	if err := Verify(m); err != nil {
		ctx.Logger.Error("generated module failed verification", "err", err)
		return nil, err
	}
	return m, nil
}

// CompileSource parses and compiles a source file.
func CompileSource(src []byte, opts ...Option) (*ir.Module, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Compile(prog, opts...)
}
