// Package marshal converts between goja values and the wire records that
// cross the host boundary.
package marshal

import (
	"math"
	"sort"

	"github.com/dop251/goja"

	"github.com/runjs/runjs/wire"
)

// DecodeRequest converts a guest object of shape
// {method, uri, headers?, body?} into a wire.Request. Header syntax is
// validated here so an invalid header never reaches the host.
func DecodeRequest(vm *goja.Runtime, v goja.Value) (wire.Request, error) {
	obj, ok := v.(*goja.Object)
	if !ok || isNullish(v) {
		return wire.Request{}, wire.Malformed("request", "expected an object")
	}

	method, err := stringField(obj, "method")
	if err != nil {
		return wire.Request{}, err
	}
	uri, err := stringField(obj, "uri")
	if err != nil {
		return wire.Request{}, err
	}

	raw, err := headersField(obj)
	if err != nil {
		return wire.Request{}, err
	}
	headers, err := wire.NormalizeHeaders(raw)
	if err != nil {
		return wire.Request{}, err
	}

	body, err := bodyField(obj)
	if err != nil {
		return wire.Request{}, err
	}

	return wire.Request{Method: method, URI: uri, Headers: headers, Body: body}, nil
}

// EncodeRequest is the inverse of DecodeRequest. The body, when present, is
// exposed as an ArrayBuffer.
func EncodeRequest(vm *goja.Runtime, req wire.Request) *goja.Object {
	obj := vm.NewObject()
	set(obj, "method", vm.ToValue(req.Method))
	set(obj, "uri", vm.ToValue(req.URI))
	set(obj, "headers", encodeHeaders(vm, req.Headers))
	set(obj, "body", encodeBody(vm, req.Body))
	return obj
}

// EncodeResponse builds the guest-visible {status, headers, body} object.
// body is null when the response has none.
func EncodeResponse(vm *goja.Runtime, resp wire.Response) *goja.Object {
	obj := vm.NewObject()
	set(obj, "status", vm.ToValue(int64(resp.Status)))
	set(obj, "headers", encodeHeaders(vm, resp.Headers))
	set(obj, "body", encodeBody(vm, resp.Body))
	return obj
}

// DecodeResponse is the inverse of EncodeResponse.
func DecodeResponse(vm *goja.Runtime, v goja.Value) (wire.Response, error) {
	obj, ok := v.(*goja.Object)
	if !ok || isNullish(v) {
		return wire.Response{}, wire.Malformed("response", "expected an object")
	}

	sv := obj.Get("status")
	if isNullish(sv) {
		return wire.Response{}, wire.Malformed("status", "missing")
	}
	status, ok := integer(sv.Export())
	if !ok || status < 0 || status > math.MaxUint16 {
		return wire.Response{}, wire.Malformed("status", "expected an integer in 0..65535")
	}

	headers, err := headersField(obj)
	if err != nil {
		return wire.Response{}, err
	}
	body, err := bodyField(obj)
	if err != nil {
		return wire.Response{}, err
	}

	return wire.Response{Status: uint16(status), Headers: headers, Body: body}, nil
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func set(obj *goja.Object, name string, v goja.Value) {
	// Set only fails on frozen or exotic objects; these are fresh.
	_ = obj.Set(name, v)
}

func stringField(obj *goja.Object, name string) (string, error) {
	v := obj.Get(name)
	if isNullish(v) {
		return "", wire.Malformed(name, "missing")
	}
	s, ok := v.Export().(string)
	if !ok {
		return "", wire.Malformed(name, "expected a string, got %s", typeName(v))
	}
	return s, nil
}

func headersField(obj *goja.Object) (map[string]string, error) {
	v := obj.Get("headers")
	if isNullish(v) {
		return map[string]string{}, nil
	}
	hobj, ok := v.(*goja.Object)
	if !ok {
		return nil, wire.Malformed("headers", "expected an object, got %s", typeName(v))
	}

	out := make(map[string]string)
	for _, key := range hobj.Keys() {
		hv := hobj.Get(key)
		s, ok := hv.Export().(string)
		if !ok {
			return nil, wire.Malformed("headers."+key, "expected a string, got %s", typeName(hv))
		}
		out[key] = s
	}
	return out, nil
}

func bodyField(obj *goja.Object) ([]byte, error) {
	v := obj.Get("body")
	if isNullish(v) {
		return nil, nil
	}

	switch b := v.Export().(type) {
	case goja.ArrayBuffer:
		return copyBytes(b.Bytes()), nil
	case []byte:
		return copyBytes(b), nil
	case []interface{}:
		out := make([]byte, len(b))
		for i, el := range b {
			n, ok := integer(el)
			if !ok || n < 0 || n > 255 {
				return nil, wire.Malformed("body", "element %d is not a byte", i)
			}
			out[i] = byte(n)
		}
		return out, nil
	default:
		return nil, wire.Malformed("body", "expected a byte sequence, got %s", typeName(v))
	}
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func integer(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func encodeHeaders(vm *goja.Runtime, h map[string]string) *goja.Object {
	obj := vm.NewObject()
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		set(obj, name, vm.ToValue(h[name]))
	}
	return obj
}

func encodeBody(vm *goja.Runtime, b []byte) goja.Value {
	if b == nil {
		return goja.Null()
	}
	return vm.ToValue(vm.NewArrayBuffer(copyBytes(b)))
}

func typeName(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	switch v.Export().(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	}
	if _, ok := v.(*goja.Object); ok {
		return "object"
	}
	if t := v.ExportType(); t != nil {
		return t.String()
	}
	return "value"
}
