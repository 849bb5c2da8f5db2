package conv

// WorkspaceSize returns the number of workspace elements algorithm needs
// for problem p. workers is the fan-out of the batched algorithm.
//
//	Gemm:      C·R·S·P·Q
//	GemmBatch: workers·C·R·S·P·Q + workers·K·C·R·S
//	Direct:    0
//	Vendor:    |input| + |output| + |filter|
func WorkspaceSize(algorithm Algorithm, p Problem, workers int) int {
	switch algorithm {
	case AlgorithmGemm:
		return p.UnpackSize()
	case AlgorithmGemmBatch:
		workers = BatchWorkers(p.N, workers)
		return workers*p.UnpackSize() + workers*p.FilterSize()
	case AlgorithmDirect:
		return 0
	case AlgorithmVendor:
		return p.N*p.InputImage() + p.N*p.OutputImage() + p.FilterSize()
	default:
		Fatalf("workspace-size", ErrUnsupportedAlgorithm, "unregistered algorithm kind %d", int(algorithm))
		return 0
	}
}

// BatchWorkers clamps the batched fan-out to [1, n].
func BatchWorkers(n, workers int) int {
	return max(1, min(workers, n))
}

// RequireWorkspace panics with ErrWorkspace when have < need.
func RequireWorkspace(op string, have, need int) {
	if have < need {
		Fatalf(op, ErrWorkspace, "workspace holds %d elements, need %d", have, need)
	}
}
