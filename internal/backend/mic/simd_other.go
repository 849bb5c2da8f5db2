//go:build !amd64 && !arm64

package mic

func detectVectorWidth() {}
