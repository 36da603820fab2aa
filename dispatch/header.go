// Package dispatch maps a caller-supplied header and byte buffers to a
// validated, runtime-parameterized Roll and Canopy, and exposes the full
// operation set (initialize, append, replace_leaf, verify_leaf,
// transfer_authority, and the pre-append/graft pair) as functions over
// those buffers — the module's only external interface.
package dispatch

import "encoding/binary"

// HeaderSize is the fixed byte length of Header's binary encoding.
const HeaderSize = 4 + 4 + 32 + 32 + 8

// Header is the fixed-size prefix stored ahead of a roll's body bytes,
// identifying its shape and its authorities.
type Header struct {
	MaxBufferSize   uint32
	MaxDepth        uint32
	Authority       [32]byte
	AppendAuthority [32]byte
	CreationSlot    uint64
}

// DecodeHeader reads a Header from the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrBufferTooSmall
	}
	var h Header
	h.MaxBufferSize = binary.LittleEndian.Uint32(buf[0:4])
	h.MaxDepth = binary.LittleEndian.Uint32(buf[4:8])
	copy(h.Authority[:], buf[8:40])
	copy(h.AppendAuthority[:], buf[40:72])
	h.CreationSlot = binary.LittleEndian.Uint64(buf[72:80])
	return h, nil
}

// Encode writes h into the first HeaderSize bytes of buf.
func (h Header) Encode(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrBufferTooSmall
	}
	binary.LittleEndian.PutUint32(buf[0:4], h.MaxBufferSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.MaxDepth)
	copy(buf[8:40], h.Authority[:])
	copy(buf[40:72], h.AppendAuthority[:])
	binary.LittleEndian.PutUint64(buf[72:80], h.CreationSlot)
	return nil
}
