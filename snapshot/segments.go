package snapshot

import "github.com/runjs/runjs/wasmbin"

const (
	pageSize = 65536

	// DefaultMaxSegments caps the number of data segments written.
	DefaultMaxSegments = 10000

	minGap = 8
)

type span struct {
	start, end int
}

// nonZeroSpans returns the runs of non-zero bytes in mem, joining runs
// separated by at most gap zero bytes.
func nonZeroSpans(mem []byte, gap int) []span {
	var spans []span
	i := 0
	for i < len(mem) {
		if mem[i] == 0 {
			i++
			continue
		}
		start := i
		for i < len(mem) && mem[i] != 0 {
			i++
		}
		if n := len(spans); n > 0 && start-spans[n-1].end <= gap {
			spans[n-1].end = i
		} else {
			spans = append(spans, span{start: start, end: i})
		}
	}
	return spans
}

// dataSegments covers the non-zero bytes of mem with at most maxSegments
// active segments, doubling the merge gap until they fit.
func dataSegments(mem []byte, maxSegments int) []wasmbin.DataSegment {
	if maxSegments <= 0 {
		maxSegments = DefaultMaxSegments
	}
	spans := nonZeroSpans(mem, minGap)
	for gap := minGap * 2; len(spans) > maxSegments; gap *= 2 {
		spans = nonZeroSpans(mem, gap)
	}

	segs := make([]wasmbin.DataSegment, len(spans))
	for i, s := range spans {
		segs[i] = wasmbin.DataSegment{
			Offset: wasmbin.I32ConstExpr(int32(uint32(s.start))),
			Init:   append([]byte(nil), mem[s.start:s.end]...),
		}
	}
	return segs
}
