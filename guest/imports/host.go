// Package imports wraps the functions the guest imports from the host.
package imports

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/runjs/runjs/guest/internal/mem"
	"github.com/runjs/runjs/wire"
)

var errNoResult = errors.New("host returned no result")

// HTTP sends requests through the host's HTTP capability.
type HTTP struct{}

// Send performs req synchronously on the host.
func (HTTP) Send(req wire.Request) (wire.Response, error) {
	return roundTrip(req, exchange)
}

func exchange(encoded []byte) []byte {
	ptr, size := mem.BytesToPtr(encoded)
	n := httpSend(ptr, size)
	runtime.KeepAlive(encoded) // until ptr is no longer needed.
	if n == 0 {
		return nil
	}
	return mem.GetBytes(func(ptr uint32, limit mem.BufLimit) (len uint32) {
		return httpResult(ptr, limit)
	})
}

func roundTrip(req wire.Request, exchange func([]byte) []byte) (wire.Response, error) {
	encoded, err := wire.MarshalRequest(req)
	if err != nil {
		return wire.Response{}, wire.Malformed("request", "encode: %v", err)
	}

	raw := exchange(encoded)
	if len(raw) == 0 {
		return wire.Response{}, wire.NetworkFailure(errNoResult)
	}

	res, err := wire.UnmarshalResult(raw)
	if err != nil {
		return wire.Response{}, wire.NetworkFailure(fmt.Errorf("decode host result: %w", err))
	}
	if err := res.Err(); err != nil {
		return wire.Response{}, err
	}
	return *res.Response, nil
}
