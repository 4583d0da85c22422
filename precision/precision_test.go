package precision

import "testing"

func TestAutocast(t *testing.T) {
	tests := []struct {
		name     string
		autocast bool
		dtype    DType
	}{
		{"amp", true, Float16},
		{"amp_bf16", true, BFloat16},
		{"amp_bfloat16", true, BFloat16},
		{"fp32", false, ""},
		{"AMP", false, ""},
		{"Amp_BF16", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Autocast(tt.name)
			if m.Autocast != tt.autocast {
				t.Errorf("Autocast = %v, want %v", m.Autocast, tt.autocast)
			}
			if m.DType != tt.dtype {
				t.Errorf("DType = %q, want %q", m.DType, tt.dtype)
			}
			if m.Name != tt.name {
				t.Errorf("Name = %q, want %q", m.Name, tt.name)
			}
		})
	}
}

func TestMode_Enter(t *testing.T) {
	var calls []bool
	hook := func(_ Mode, entering bool) { calls = append(calls, entering) }

	exit := Autocast("amp").Enter(hook)
	if len(calls) != 1 || !calls[0] {
		t.Fatalf("calls after enter = %v", calls)
	}
	exit()
	if len(calls) != 2 || calls[1] {
		t.Fatalf("calls after exit = %v", calls)
	}
}

func TestMode_EnterNoop(t *testing.T) {
	called := false
	exit := Autocast("fp32").Enter(func(Mode, bool) { called = true })
	exit()
	if called {
		t.Error("no-op mode must not call the hook")
	}
	Autocast("amp").Enter(nil)()
}
