package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundtrip(t *testing.T) {
	req := Request{Cmd: CmdPin, Addr: 0x1000, Size: 0x2000}

	buf := EncodeRequest(req)
	require.Len(t, buf, RequestSize)

	got, err := DecodeRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestDecodeRequestWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, RequestSize - 1, RequestSize + 1} {
		_, err := DecodeRequest(make([]byte, n))
		assert.ErrorIs(t, err, ErrFault, "length %d", n)
	}
}

func TestReadRequest(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		buf := EncodeRequest(Request{Cmd: CmdUnpin, Addr: 0xdead0000, Size: 0x42})

		req, err := ReadRequest(bytes.NewReader(buf))
		require.NoError(t, err)
		assert.Equal(t, CmdUnpin, req.Cmd)
		assert.Equal(t, uint64(0xdead0000), req.Addr)
		assert.Equal(t, uint64(0x42), req.Size)
	})

	t.Run("clean close on record boundary", func(t *testing.T) {
		_, err := ReadRequest(bytes.NewReader(nil))
		require.ErrorIs(t, err, io.EOF)
		require.NotErrorIs(t, err, ErrFault)
	})

	t.Run("truncated record", func(t *testing.T) {
		buf := EncodeRequest(Request{Cmd: CmdPin, Addr: 0x1000, Size: 0x1000})

		_, err := ReadRequest(bytes.NewReader(buf[:10]))
		require.ErrorIs(t, err, ErrFault)
	})
}

func TestCodeRoundtrip(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCode(&buf, CodeSizeMismatch))
	assert.Equal(t, 4, buf.Len())

	code, err := ReadCode(&buf)
	require.NoError(t, err)
	assert.Equal(t, CodeSizeMismatch, code)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ok", CodeOK.String())
	assert.Equal(t, "already_pinned", CodeAlreadyPinned.String())
	assert.Equal(t, "code(99)", Code(99).String())
}
