package conv

import (
	"github.com/born-ml/blitz/internal/tensor"
)

// availability lists the algorithms each device implements. The vendor
// algorithm additionally needs a registered Vendor.
var availability = map[tensor.Device][]Algorithm{
	tensor.CPU: {AlgorithmGemm, AlgorithmGemmBatch, AlgorithmDirect},
	tensor.GPU: {AlgorithmGemm, AlgorithmDirect, AlgorithmVendor},
	tensor.MIC: {AlgorithmGemmBatch, AlgorithmDirect},
}

// Available reports whether device implements algorithm. hasVendor tells
// whether a vendor capability is registered for the device.
func Available(device tensor.Device, algorithm Algorithm, hasVendor bool) bool {
	if algorithm == AlgorithmVendor && !hasVendor {
		return false
	}
	for _, a := range availability[device] {
		if a == algorithm {
			return true
		}
	}
	return false
}

// AvailableAlgorithms lists the algorithms usable on device.
func AvailableAlgorithms(device tensor.Device, hasVendor bool) []Algorithm {
	var out []Algorithm
	for _, a := range availability[device] {
		if Available(device, a, hasVendor) {
			out = append(out, a)
		}
	}
	return out
}

// Strategy is a validated (device, phase, algorithm) choice.
type Strategy struct {
	Device    tensor.Device
	Phase     Phase
	Algorithm Algorithm
}

func (s Strategy) String() string {
	return s.Device.String() + "/" + s.Phase.String() + "/" + s.Algorithm.String()
}

// Select validates that cfg.Algorithm can run phase on device and returns
// the resulting strategy. Unknown or unavailable algorithms and violated
// algorithm preconditions panic with an *Error.
func Select(device tensor.Device, phase Phase, cfg Config, hasVendor bool) Strategy {
	op := "select " + phase.String()
	if !cfg.Algorithm.Valid() {
		Fatalf(op, ErrUnsupportedAlgorithm, "unregistered algorithm kind %d", int(cfg.Algorithm))
	}
	if !Available(device, cfg.Algorithm, hasVendor) {
		if cfg.Algorithm == AlgorithmVendor && !hasVendor {
			Fatalf(op, ErrUnsupportedAlgorithm, "%s requested on %s without a registered vendor", cfg.Algorithm, device)
		}
		Fatalf(op, ErrUnsupportedAlgorithm, "%s is not available on %s", cfg.Algorithm, device)
	}
	if cfg.Algorithm == AlgorithmDirect {
		RequireDirect(phase, cfg)
	}
	return Strategy{Device: device, Phase: phase, Algorithm: cfg.Algorithm}
}

// RequireDirect enforces the direct algorithm's padding contract: padding
// is produced on the output side of the forward pass only, so backward-data
// and update passes with nonzero padding are rejected.
func RequireDirect(phase Phase, cfg Config) {
	if phase != Forward && cfg.HasPadding() {
		Fatalf("direct "+phase.String(), ErrDirectPadding, "padding (%d, %d) requested", cfg.PadH, cfg.PadW)
	}
}
