// Package precision selects the mixed-precision mode for a training run.
package precision

// DType is the reduced-precision float type of an autocast region.
type DType string

// Autocast dtypes.
const (
	Float16  DType = "float16"
	BFloat16 DType = "bfloat16"
)

// Mode is a selected precision mode. The zero Mode is a no-op.
type Mode struct {
	// Name is the precision name the mode was selected from.
	Name string `json:"name" yaml:"name"`
	// Autocast is true when a reduced-precision region is entered.
	Autocast bool `json:"autocast" yaml:"autocast"`
	// DType is the autocast dtype, empty for the no-op mode.
	DType DType `json:"dtype,omitempty" yaml:"dtype,omitempty"`
}

// Autocast maps a precision name to its mode:
// "amp" is float16 autocast, "amp_bf16" and "amp_bfloat16" are bfloat16
// autocast, and any other name (e.g. "fp32", or "AMP": names are
// case-sensitive) selects no autocast.
func Autocast(name string) Mode {
	switch name {
	case "amp":
		return Mode{Name: name, Autocast: true, DType: Float16}
	case "amp_bf16", "amp_bfloat16":
		return Mode{Name: name, Autocast: true, DType: BFloat16}
	default:
		return Mode{Name: name}
	}
}

// Enter opens a scope in the mode and returns the func that leaves it.
// hook, if non-nil, is called on entry and exit with the active mode.
//
//	defer mode.Enter(nil)()
func (m Mode) Enter(hook func(m Mode, entering bool)) (exit func()) {
	if !m.Autocast || hook == nil {
		return func() {}
	}
	hook(m, true)
	return func() { hook(m, false) }
}
