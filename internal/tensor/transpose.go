package tensor

import "fmt"

// NCHWToNHWC writes src, laid out as [n, c, h, w], into dst as [n, h, w, c].
func NCHWToNHWC[T Float](dst, src []T, n, c, h, w int) {
	checkTransposeLen(len(dst), len(src), n*c*h*w)
	hw := h * w
	for b := 0; b < n; b++ {
		srcBatch := src[b*c*hw : (b+1)*c*hw]
		dstBatch := dst[b*c*hw : (b+1)*c*hw]
		for ch := 0; ch < c; ch++ {
			plane := srcBatch[ch*hw : (ch+1)*hw]
			for i, v := range plane {
				dstBatch[i*c+ch] = v
			}
		}
	}
}

// NHWCToNCHW writes src, laid out as [n, h, w, c], into dst as [n, c, h, w].
func NHWCToNCHW[T Float](dst, src []T, n, c, h, w int) {
	checkTransposeLen(len(dst), len(src), n*c*h*w)
	hw := h * w
	for b := 0; b < n; b++ {
		srcBatch := src[b*c*hw : (b+1)*c*hw]
		dstBatch := dst[b*c*hw : (b+1)*c*hw]
		for ch := 0; ch < c; ch++ {
			plane := dstBatch[ch*hw : (ch+1)*hw]
			for i := range plane {
				plane[i] = srcBatch[i*c+ch]
			}
		}
	}
}

// ConvertLayout copies src (shape s) into dst using the target buffer layout.
// Equal layouts reduce to a plain copy.
func ConvertLayout[T Float](dst []T, target Layout, src []T, s Shape) {
	n, c, h, w := s.Buffer2D()
	switch {
	case s.Layout() == target:
		checkTransposeLen(len(dst), len(src), n*c*h*w)
		copy(dst, src[:n*c*h*w])
	case s.Layout() == BufferNCHW && target == BufferNHWC:
		NCHWToNHWC(dst, src, n, c, h, w)
	case s.Layout() == BufferNHWC && target == BufferNCHW:
		NHWCToNCHW(dst, src, n, c, h, w)
	default:
		panic(fmt.Sprintf("tensor: cannot convert %s to %s", s.Layout(), target))
	}
}

func checkTransposeLen(dst, src, want int) {
	if dst < want || src < want {
		panic(fmt.Sprintf("tensor: transpose needs %d elements, got dst=%d src=%d", want, dst, src))
	}
}
