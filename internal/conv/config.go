// Package conv holds the device-independent part of the convolution engine:
// per-call configuration, the closed set of algorithms, problem decoding and
// validation, algorithm selection, workspace sizing and the error taxonomy.
package conv

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Phase identifies one of the three convolution passes.
type Phase int

// Convolution passes.
const (
	Forward Phase = iota
	BackwardData
	UpdateFilter
)

func (p Phase) String() string {
	switch p {
	case Forward:
		return "forward"
	case BackwardData:
		return "backward-data"
	case UpdateFilter:
		return "update-filter"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ParsePhase parses a phase name. "backward" and "update" are accepted as
// short forms.
func ParsePhase(name string) (Phase, error) {
	switch strings.ToLower(name) {
	case "forward":
		return Forward, nil
	case "backward", "backward-data":
		return BackwardData, nil
	case "update", "update-filter":
		return UpdateFilter, nil
	default:
		return 0, errors.Errorf("conv: unknown phase %q", name)
	}
}

// Algorithm is the strategy that computes a convolution.
type Algorithm int

// Supported algorithms.
const (
	// AlgorithmGemm unpacks each image into the workspace and runs one
	// matrix multiply per image.
	AlgorithmGemm Algorithm = iota
	// AlgorithmGemmBatch unpacks several images concurrently into per-worker
	// workspace slices.
	AlgorithmGemmBatch
	// AlgorithmDirect computes windows without materializing the unpacked
	// matrix. Padding is applied to the output side only.
	AlgorithmDirect
	// AlgorithmVendor delegates to a registered Vendor capability.
	AlgorithmVendor

	numAlgorithms
)

var algorithmNames = [numAlgorithms]string{
	AlgorithmGemm:      "convolution_blas_gemm",
	AlgorithmGemmBatch: "convolution_blas_gemm_batch",
	AlgorithmDirect:    "convolution_direct",
	AlgorithmVendor:    "convolution_vendor",
}

var algorithmAliases = map[string]Algorithm{
	"convolution_xsmm_direct": AlgorithmDirect,
	"convolution_cudnn":       AlgorithmVendor,
}

func (a Algorithm) String() string {
	if a.Valid() {
		return algorithmNames[a]
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Valid reports whether a is one of the known algorithms.
func (a Algorithm) Valid() bool {
	return a >= 0 && a < numAlgorithms
}

// ParseAlgorithm maps an algorithm name to its kind.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range algorithmNames {
		if n == name {
			return Algorithm(a), nil
		}
	}
	if a, ok := algorithmAliases[name]; ok {
		return a, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedAlgorithm, "unknown algorithm %q", name)
}

// Algorithms lists every known algorithm.
func Algorithms() []Algorithm {
	all := make([]Algorithm, numAlgorithms)
	for i := range all {
		all[i] = Algorithm(i)
	}
	return all
}

// Config is the per-call convolution configuration.
type Config struct {
	PadH, PadW       int
	StrideH, StrideW int
	Algorithm        Algorithm
}

// NewConfig returns a configuration with symmetric padding and stride.
func NewConfig(pad, stride int, algorithm Algorithm) Config {
	return Config{PadH: pad, PadW: pad, StrideH: stride, StrideW: stride, Algorithm: algorithm}
}

// HasPadding reports whether any padding is requested.
func (c Config) HasPadding() bool {
	return c.PadH != 0 || c.PadW != 0
}

// Validate checks stride ≥ 1 and padding ≥ 0.
func (c Config) Validate() error {
	if c.StrideH < 1 || c.StrideW < 1 {
		return errors.Wrapf(ErrInvalidConfig, "stride must be >= 1, got (%d, %d)", c.StrideH, c.StrideW)
	}
	if c.PadH < 0 || c.PadW < 0 {
		return errors.Wrapf(ErrInvalidConfig, "padding must be >= 0, got (%d, %d)", c.PadH, c.PadW)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s pad=(%d,%d) stride=(%d,%d)", c.Algorithm, c.PadH, c.PadW, c.StrideH, c.StrideW)
}
