package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses canonical CBOR so equal records encode to equal bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type requestRecord struct {
	Method  string            `cbor:"method"`
	URI     string            `cbor:"uri"`
	Headers map[string]string `cbor:"headers"`
	HasBody bool              `cbor:"has_body"`
	Body    []byte            `cbor:"body"`
}

type responseRecord struct {
	Status  uint16            `cbor:"status"`
	Headers map[string]string `cbor:"headers"`
	HasBody bool              `cbor:"has_body"`
	Body    []byte            `cbor:"body"`
}

type errorRecord struct {
	Kind    string `cbor:"kind"`
	Field   string `cbor:"field"`
	Message string `cbor:"message"`
}

type resultRecord struct {
	Response *responseRecord `cbor:"response,omitempty"`
	Error    *errorRecord    `cbor:"error,omitempty"`
}

// decodeBody restores the nil/empty distinction that CBOR alone does not
// guarantee for byte strings.
func decodeBody(has bool, b []byte) []byte {
	if !has {
		return nil
	}
	if b == nil {
		return []byte{}
	}
	return b
}

// MarshalRequest encodes req for the guest -> host direction.
func MarshalRequest(req Request) ([]byte, error) {
	return encMode.Marshal(requestRecord{
		Method:  req.Method,
		URI:     req.URI,
		Headers: req.Headers,
		HasBody: req.Body != nil,
		Body:    req.Body,
	})
}

// UnmarshalRequest decodes a request written by MarshalRequest.
func UnmarshalRequest(data []byte) (Request, error) {
	var rec requestRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return Request{}, Malformed("request", "undecodable record: %v", err)
	}
	headers := rec.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return Request{
		Method:  rec.Method,
		URI:     rec.URI,
		Headers: headers,
		Body:    decodeBody(rec.HasBody, rec.Body),
	}, nil
}

// MarshalResult encodes the host -> guest envelope. A Result carrying an
// error that is not an *Error is not representable; callers convert first.
func MarshalResult(res Result) ([]byte, error) {
	var rec resultRecord
	switch {
	case res.Error != nil:
		rec.Error = &errorRecord{
			Kind:    string(res.Error.Kind),
			Field:   res.Error.Field,
			Message: res.Error.Message,
		}
	case res.Response != nil:
		rec.Response = &responseRecord{
			Status:  res.Response.Status,
			Headers: res.Response.Headers,
			HasBody: res.Response.Body != nil,
			Body:    res.Response.Body,
		}
	default:
		return nil, fmt.Errorf("wire: empty result")
	}
	return encMode.Marshal(rec)
}

// UnmarshalResult decodes an envelope written by MarshalResult.
func UnmarshalResult(data []byte) (Result, error) {
	var rec resultRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return Result{}, fmt.Errorf("wire: unmarshal result: %w", err)
	}
	switch {
	case rec.Error != nil:
		return Result{Error: &Error{
			Kind:    Kind(rec.Error.Kind),
			Field:   rec.Error.Field,
			Message: rec.Error.Message,
		}}, nil
	case rec.Response != nil:
		headers := rec.Response.Headers
		if headers == nil {
			headers = map[string]string{}
		}
		return Result{Response: &Response{
			Status:  rec.Response.Status,
			Headers: headers,
			Body:    decodeBody(rec.Response.HasBody, rec.Response.Body),
		}}, nil
	default:
		return Result{}, fmt.Errorf("wire: result carries neither response nor error")
	}
}
