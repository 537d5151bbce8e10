package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"record", []string{"-frames", "3", "-progress=false"}, []string{"scene built", "backend=record", "done"}},
		{"noop", []string{"-backend", "noop", "-frames", "2", "-progress=false"}, []string{"backend=noop", "adapter", "passes=2"}},
		{"churn", []string{"-frames", "4", "-churn", "8", "-progress=false", "-v"}, []string{"draw list rebuilt", "domain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.args, &out); err != nil {
				t.Fatalf("run: %v\n%s", err, out.String())
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-backend", "vulkan"},
		{"-scene", "does-not-exist.yaml"},
		{"-frames", "-1"},
	} {
		if err := run(args, &bytes.Buffer{}); err == nil {
			t.Errorf("run(%q) succeeded", args)
		}
	}
}
