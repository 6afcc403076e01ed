package compile

import (
	"io"

	"github.com/f12lang/f12/internal/vm"
)

// DefaultHeapSize is the portion of the VM's memory region reserved for the
// heap allocator when no RunOption overrides it (spec.md §4.6 leaves the
// stack/heap split unspecified beyond "the heap occupies the high
// portion"; a quarter of the default 1 MiB region leaves ample stack depth
// for the recursive programs spec.md's examples exercise).
const DefaultHeapSize = vm.DefaultSize / 4

// runConfig collects Run's configurable knobs, plumbed straight through to
// vm.Option (compile.Run is the convenience wrapper; a caller wanting finer
// control can drive internal/vm directly).
type runConfig struct {
	heapSize int
	vmOpts   []vm.Option
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithHeapSize overrides DefaultHeapSize.
func WithHeapSize(size int) RunOption { return func(c *runConfig) { c.heapSize = size } }

// WithMemorySize overrides the VM's total memory region size (default
// vm.DefaultSize).
func WithMemorySize(size int) RunOption {
	return func(c *runConfig) { c.vmOpts = append(c.vmOpts, vm.WithMemSize(size)) }
}

// WithStdin sets the stream the VM's FROM_STDIN opcode reads from (default
// os.Stdin).
func WithStdin(r io.Reader) RunOption {
	return func(c *runConfig) { c.vmOpts = append(c.vmOpts, vm.WithStdin(r)) }
}

// WithStdout sets the stream the VM's TO_STDOUT_* opcodes write to (default
// os.Stdout).
func WithStdout(w io.Writer) RunOption {
	return func(c *runConfig) { c.vmOpts = append(c.vmOpts, vm.WithStdout(w)) }
}

// WithTrace enables the VM's per-instruction Debug-level trace log.
func WithTrace(enabled bool) RunOption {
	return func(c *runConfig) { c.vmOpts = append(c.vmOpts, vm.WithTrace(enabled)) }
}

// Run loads code into a fresh VM and executes it to completion, returning
// whatever runtime error (spec.md §7 taxonomy 5) halted it, if any.
func Run(code []byte, opts ...RunOption) error {
	c := &runConfig{heapSize: DefaultHeapSize}
	for _, opt := range opts {
		opt(c)
	}

	m := vm.New(c.vmOpts...)
	if err := m.Load(code, c.heapSize); err != nil {
		return err
	}
	return m.Run()
}
