package codec

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_Primitives(t *testing.T) {
	cases := []any{42, "hello", 3.14, true, nil}
	for _, c := range cases {
		s, err := EncodeOne(c)
		require.NoError(t, err)
		got, err := DecodeOne(s)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

type sample struct {
	Name  string
	Count int
}

func TestRoundTrip_Struct(t *testing.T) {
	v := sample{Name: "widget", Count: 3}
	s, err := EncodeOne(v)
	require.NoError(t, err)
	got, err := DecodeOne(s)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestRoundTrip_NumericSlice(t *testing.T) {
	v := []int{1, 2, 3, 4, 5}
	s, err := EncodeOne(v)
	require.NoError(t, err)
	got, err := DecodeOne(s)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestRoundTrip_LargePayload(t *testing.T) {
	v := strings.Repeat("x", 10*1024*1024)
	s, err := EncodeOne(v)
	require.NoError(t, err)
	got, err := DecodeOne(s)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestRoundTrip_Closure(t *testing.T) {
	counter := 0
	fn := func() int { counter++; return counter }

	s, err := EncodeOne(fn)
	require.NoError(t, err)

	got, err := DecodeOne(s)
	require.NoError(t, err)

	decoded, ok := got.(func() int)
	require.True(t, ok)
	assert.Equal(t, 1, decoded())
}

func TestEncode_RejectsFileHandle(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "codec")
	require.NoError(t, err)
	defer f.Close()

	_, err = EncodeOne(f)
	require.Error(t, err)
}

func TestEncode_RejectsChannel(t *testing.T) {
	ch := make(chan int)
	_, err := EncodeOne(ch)
	require.Error(t, err)
}

func TestPositional_RoundTrip(t *testing.T) {
	vs := []any{1, "two", 3.0}
	enc, err := EncodePositional(vs)
	require.NoError(t, err)
	dec, err := DecodePositional(enc)
	require.NoError(t, err)
	assert.Equal(t, vs, dec)
}

func TestNamed_RoundTrip(t *testing.T) {
	m := map[string]any{"a": 1, "b": "two"}
	enc, err := EncodeNamed(m)
	require.NoError(t, err)
	dec, err := DecodeNamed(enc)
	require.NoError(t, err)
	assert.Equal(t, m, dec)
}

func TestDecode_InvalidBase64(t *testing.T) {
	_, err := DecodeOne("not-valid-base64!!!")
	require.Error(t, err)
}
