// Package wire defines the records that cross the host/guest boundary and
// their binary encoding.
//
// A request travels guest -> host as a CBOR-encoded Request. The reply
// travels host -> guest as a CBOR-encoded Result holding either a Response
// or an Error. Both directions use a canonical encoding mode so the same
// record always produces the same bytes.
package wire

// Request is an outbound HTTP request issued by the guest.
//
// A nil Body means the request has no body. A non-nil empty Body is an
// explicit empty body and is preserved as such across the boundary.
type Request struct {
	Method  string
	URI     string
	Headers map[string]string
	Body    []byte
}

// Response is the host's answer to a Request.
//
// Body follows the same nil/empty convention as Request.Body.
type Response struct {
	Status  uint16
	Headers map[string]string
	Body    []byte
}

// Result is the envelope written back to the guest after a call. Exactly one
// of Response and Error is set.
type Result struct {
	Response *Response
	Error    *Error
}

// Err returns the result's error as an error value, or nil.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}
