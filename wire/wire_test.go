package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBodyPresence(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		wantNil bool
	}{
		{name: "absent body", body: nil, wantNil: true},
		{name: "explicit empty body", body: []byte{}, wantNil: false},
		{name: "binary body", body: []byte{0x00, 0xff, 0x80, 0x0a}, wantNil: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalRequest(Request{Method: "POST", URI: "https://example.com/", Body: tt.body})
			require.NoError(t, err)

			got, err := UnmarshalRequest(data)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got.Body)
				return
			}
			require.NotNil(t, got.Body)
			assert.Equal(t, tt.body, got.Body)
		})
	}
}

func TestMarshalRequestIsDeterministic(t *testing.T) {
	req := Request{
		Method:  "GET",
		URI:     "https://example.com/",
		Headers: map[string]string{"b": "2", "a": "1", "c": "3"},
	}
	first, err := MarshalRequest(req)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalRequest(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResultEnvelope(t *testing.T) {
	t.Run("response", func(t *testing.T) {
		data, err := MarshalResult(Result{Response: &Response{
			Status:  204,
			Headers: map[string]string{"x-test": "1"},
		}})
		require.NoError(t, err)

		res, err := UnmarshalResult(data)
		require.NoError(t, err)
		require.NoError(t, res.Err())
		require.NotNil(t, res.Response)
		assert.Equal(t, uint16(204), res.Response.Status)
		assert.Equal(t, "1", res.Response.Headers["x-test"])
		assert.Nil(t, res.Response.Body)
	})

	t.Run("error keeps kind and flattens cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		data, err := MarshalResult(Result{Error: NetworkFailure(cause)})
		require.NoError(t, err)

		res, err := UnmarshalResult(data)
		require.NoError(t, err)
		require.Error(t, res.Err())
		assert.Equal(t, KindNetworkError, KindOf(res.Err()))
		assert.Contains(t, res.Err().Error(), "connection refused")
	})

	t.Run("empty result is rejected", func(t *testing.T) {
		_, err := MarshalResult(Result{})
		assert.Error(t, err)
	})
}

func TestUnmarshalRequestRejectsGarbage(t *testing.T) {
	_, err := UnmarshalRequest([]byte{0xff, 0x00, 0x13})
	require.Error(t, err)
	assert.Equal(t, KindMalformedRequest, KindOf(err))
}

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name     string
		in       map[string]string
		want     map[string]string
		wantKind Kind
	}{
		{
			name: "lower-cases names",
			in:   map[string]string{"Content-Type": "text/plain", "X-Id": "7"},
			want: map[string]string{"content-type": "text/plain", "x-id": "7"},
		},
		{
			name: "empty map",
			in:   map[string]string{},
			want: map[string]string{},
		},
		{
			name:     "name with space",
			in:       map[string]string{"Bad Name": "v"},
			wantKind: KindInvalidHeader,
		},
		{
			name:     "value with newline",
			in:       map[string]string{"x-inject": "a\r\nb: c"},
			wantKind: KindInvalidHeader,
		},
		{
			name:     "value with NUL byte",
			in:       map[string]string{"x-nul": "a\x00b"},
			wantKind: KindInvalidHeader,
		},
		{
			name:     "case-folded duplicate",
			in:       map[string]string{"Accept": "a", "accept": "b"},
			wantKind: KindMalformedRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHeaders(tt.in)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseHeaderValue(t *testing.T) {
	v, err := ResponseHeaderValue("vary", []string{"accept", "origin"})
	require.NoError(t, err)
	assert.Equal(t, "accept, origin", v)

	_, err = ResponseHeaderValue("x-bin", []string{string([]byte{0xc3, 0x28})})
	require.Error(t, err)
	assert.Equal(t, KindInvalidHeader, KindOf(err))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NetworkFailure(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NetworkError: boom", err.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
