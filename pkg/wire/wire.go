// Package wire defines the fixed-layout control protocol spoken over the
// mpind socket: a 24-byte little-endian request record answered by a
// 4-byte result code.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Command identifiers carried in the request record.
const (
	CmdPin   uint32 = 1
	CmdUnpin uint32 = 2
)

// RequestSize is the fixed length of the request record: command word,
// reserved padding, address, size.
const RequestSize = 24

// ErrFault means the request record could not be transferred intact. It
// is surfaced before the command is interpreted.
var ErrFault = errors.New("request record transfer failed")

// Code is the result of one command.
type Code uint32

const (
	CodeOK Code = iota
	CodeAllocFailure
	CodePinFailure
	CodeNotFound
	CodeSizeMismatch
	CodeAlreadyPinned
	CodeFault
	CodeUnknownCommand
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeAllocFailure:
		return "allocation_failure"
	case CodePinFailure:
		return "pin_failure"
	case CodeNotFound:
		return "not_found"
	case CodeSizeMismatch:
		return "size_mismatch"
	case CodeAlreadyPinned:
		return "already_pinned"
	case CodeFault:
		return "fault"
	case CodeUnknownCommand:
		return "unknown_command"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}

// Request addresses a range of the caller's virtual memory.
type Request struct {
	Cmd  uint32
	Addr uint64
	Size uint64
}

func EncodeRequest(req Request) []byte {
	buf := make([]byte, RequestSize)

	binary.LittleEndian.PutUint32(buf[0:4], req.Cmd)
	binary.LittleEndian.PutUint64(buf[8:16], req.Addr)
	binary.LittleEndian.PutUint64(buf[16:24], req.Size)

	return buf
}

// DecodeRequest validates and deserializes one request record. Anything
// other than exactly RequestSize bytes is ErrFault.
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) != RequestSize {
		return Request{}, fmt.Errorf("%w: got %d bytes, want %d", ErrFault, len(buf), RequestSize)
	}

	return Request{
		Cmd:  binary.LittleEndian.Uint32(buf[0:4]),
		Addr: binary.LittleEndian.Uint64(buf[8:16]),
		Size: binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

// ReadRequest reads one request record from r. A clean close on a record
// boundary is io.EOF; a record cut short mid-way is ErrFault.
func ReadRequest(r io.Reader) (Request, error) {
	var buf [RequestSize]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Request{}, io.EOF
		}

		return Request{}, fmt.Errorf("%w: %w", ErrFault, err)
	}

	return DecodeRequest(buf[:])
}

func WriteCode(w io.Writer, code Code) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(code))

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write result code: %w", err)
	}

	return nil
}

func ReadCode(r io.Reader) (Code, error) {
	var buf [4]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read result code: %w", err)
	}

	return Code(binary.LittleEndian.Uint32(buf[:])), nil
}
