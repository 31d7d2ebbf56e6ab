package host

import "github.com/runjs/runjs/runtime"

// These utility functions are derived from the kube-scheduler-wasm-extension.
// https://github.com/kubernetes-sigs/kube-scheduler-wasm-extension

// writeBytesIfUnderLimit writes bytes to memory when they fit within the
// limit and returns their full length either way, so the guest can retry
// with a larger buffer.
func writeBytesIfUnderLimit(memory runtime.Memory, bytes []byte, buf, bufLimit uint32) (n uint32, written bool) {
	n = uint32(len(bytes))
	if n > bufLimit {
		return n, false
	}
	if !memory.Write(buf, bytes) {
		panic("out of memory writing host result") // Bug: guest passed a buffer outside memory
	}
	return n, true
}

func mustRead(memory runtime.Memory, buf, size uint32, what string) []byte {
	b, ok := memory.Read(buf, size)
	if !ok {
		panic("out of memory reading " + what) // Bug: guest passed a length outside memory
	}
	return b
}
