package wire

import (
	"testing"
)

func FuzzUnmarshalRequest(f *testing.F) {
	seed, err := MarshalRequest(Request{Method: "GET", URI: "https://example.com/", Headers: map[string]string{"a": "b"}})
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{0xa0})

	f.Fuzz(func(t *testing.T, raw []byte) {
		req, err := UnmarshalRequest(raw)
		if err != nil {
			if KindOf(err) != KindMalformedRequest {
				t.Fatalf("expected %s, got %v", KindMalformedRequest, err)
			}
			return
		}

		again, err := MarshalRequest(req)
		if err != nil {
			t.Fatalf("re-encoding a decoded request failed: %v", err)
		}
		back, err := UnmarshalRequest(again)
		if err != nil {
			t.Fatalf("decoding a re-encoded request failed: %v", err)
		}
		if back.Method != req.Method || back.URI != req.URI || len(back.Headers) != len(req.Headers) || (back.Body == nil) != (req.Body == nil) {
			t.Fatalf("request changed across a round trip: %+v != %+v", back, req)
		}
	})
}
