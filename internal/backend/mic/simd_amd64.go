//go:build amd64

package mic

import "golang.org/x/sys/cpu"

func detectVectorWidth() {
	switch {
	case cpu.X86.HasAVX512F:
		vectorBytes, vectorName = 64, "avx512"
	case cpu.X86.HasAVX2:
		vectorBytes, vectorName = 32, "avx2"
	case cpu.X86.HasSSE2:
		vectorBytes, vectorName = 16, "sse2"
	}
}
