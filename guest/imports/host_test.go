package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runjs/runjs/wire"
)

// fakeHost decodes the request the way the host does and answers with res.
func fakeHost(t *testing.T, res wire.Result, seen *wire.Request) func([]byte) []byte {
	return func(encoded []byte) []byte {
		req, err := wire.UnmarshalRequest(encoded)
		require.NoError(t, err)
		*seen = req
		out, err := wire.MarshalResult(res)
		require.NoError(t, err)
		return out
	}
}

func TestRoundTripResponse(t *testing.T) {
	var seen wire.Request
	want := wire.Response{Status: 201, Headers: map[string]string{"x": "y"}, Body: []byte{}}
	req := wire.Request{Method: "POST", URI: "https://example.com/", Headers: map[string]string{}, Body: []byte("hi")}

	got, err := roundTrip(req, fakeHost(t, wire.Result{Response: &want}, &seen))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NotNil(t, got.Body)
	assert.Equal(t, req, seen)
}

func TestRoundTripError(t *testing.T) {
	var seen wire.Request
	res := wire.Result{Error: wire.OriginNotAllowed("https://evil.test")}

	_, err := roundTrip(wire.Request{Method: "GET", URI: "https://evil.test/"}, fakeHost(t, res, &seen))
	require.Error(t, err)
	assert.Equal(t, wire.KindOriginNotAllowed, wire.KindOf(err))
	assert.Contains(t, err.Error(), "evil.test")
}

func TestRoundTripNoResult(t *testing.T) {
	_, err := roundTrip(wire.Request{Method: "GET"}, func([]byte) []byte { return nil })
	require.Error(t, err)
	assert.Equal(t, wire.KindNetworkError, wire.KindOf(err))
	assert.ErrorIs(t, err, errNoResult)
}

func TestRoundTripGarbage(t *testing.T) {
	_, err := roundTrip(wire.Request{Method: "GET"}, func([]byte) []byte { return []byte{0xff, 0x00} })
	require.Error(t, err)
	assert.Equal(t, wire.KindNetworkError, wire.KindOf(err))
}

func TestStubbedHostReportsNoResult(t *testing.T) {
	_, err := HTTP{}.Send(wire.Request{Method: "GET", URI: "https://example.com/"})
	assert.ErrorIs(t, err, errNoResult)
}
