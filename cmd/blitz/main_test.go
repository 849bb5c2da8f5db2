package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Blitz "+version+"\n", out)
}

func TestConv_DevicesMatchHost(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"cpu forward gemm", []string{"conv", "forward"}},
		{"gpu backward gemm", []string{"conv", "backward", "--device", "gpu", "--stride-h", "2"}},
		{"mic update batch", []string{"conv", "update", "--device", "mic", "--algorithm", "convolution_blas_gemm_batch", "--n", "3"}},
		{"gpu direct forward", []string{"conv", "forward", "--device", "gpu", "--algorithm", "convolution_direct"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err, out)
			assert.Contains(t, out, " 0 mismatches beyond 0.01")
		})
	}
}

func TestConv_FatalErrorsReturned(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown phase", []string{"conv", "sideways"}, "sideways"},
		{"unknown algorithm", []string{"conv", "forward", "--algorithm", "fft"}, "fft"},
		{"unknown device", []string{"conv", "forward", "--device", "tpu"}, "tpu"},
		{"vendor without registration", []string{"conv", "forward", "--device", "gpu", "--algorithm", "convolution_vendor"}, "vendor"},
		{"direct backward with padding", []string{"conv", "backward", "--algorithm", "convolution_direct"}, "padding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
