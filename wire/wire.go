// Package wire implements the packet wire format support components use
// to serialize a packet.Packet onto a byte stream and read it back
// (spec.md §6, tested by scenario S7): an 8-byte big-endian
// totalFollowingLength, an 8-byte big-endian parameterBytesLength, that
// many bytes of MessagePack-encoded parameters, then zero or more
// (8-byte big-endian bufferLength, bufferLength bytes) records filling
// the remainder. Grounded on original_source's
// src/nodes/PacketWriter.cpp and src/nodes/PacketReader.cpp, which hand-
// roll the same big-endian length framing around an nlohmann-json
// to/from_msgpack call; this package keeps that framing (there is no
// pack library for this specific nested length-prefix scheme, so the
// framing stays stdlib encoding/binary) but swaps the MessagePack codec
// for hashicorp/go-msgpack.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	msgpack "github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// mh decodes MessagePack strings as Go strings and nested maps as
// map[string]any, the same types param.Parameters holds.
var mh = func() *msgpack.MsgpackHandle {
	h := &msgpack.MsgpackHandle{}
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}()

// Encode renders p as the wire format: length-prefixed MessagePack
// parameters followed by length-prefixed buffer records.
func Encode(p packet.Packet) ([]byte, error) {
	var paramBuf bytes.Buffer
	enc := msgpack.NewEncoder(&paramBuf, mh)
	if err := enc.Encode(p.Parameters.Map()); err != nil {
		return nil, fmt.Errorf("wire: encoding parameters: %w", err)
	}
	parametersLength := paramBuf.Len()

	totalFollowing := 8 + parametersLength
	for _, b := range p.Buffers {
		totalFollowing += 8 + b.Len()
	}

	out := make([]byte, 8, 8+totalFollowing)
	binary.BigEndian.PutUint64(out, uint64(totalFollowing))

	lenField := make([]byte, 8)
	binary.BigEndian.PutUint64(lenField, uint64(parametersLength))
	out = append(out, lenField...)
	out = append(out, paramBuf.Bytes()...)

	for _, b := range p.Buffers {
		binary.BigEndian.PutUint64(lenField, uint64(b.Len()))
		out = append(out, lenField...)
		out = append(out, b.Bytes()...)
	}

	return out, nil
}

// Decode parses the output of Encode back into a packet.Packet.
// data must hold exactly one complete framed packet; use Decoder to
// pull packets out of a byte stream that may contain partial or
// multiple frames.
func Decode(data []byte) (packet.Packet, error) {
	pkt, n, err := decodeFrame(data)
	if err != nil {
		return packet.Packet{}, err
	}
	if n != len(data) {
		return packet.Packet{}, errs.Wrap("wire: trailing bytes after packet frame", errs.ErrMalformedPacket)
	}
	return pkt, nil
}

// decodeFrame parses one frame at the start of data, returning the
// decoded packet and the number of bytes it consumed. It returns
// (zero, 0, nil) if data does not yet hold a complete frame.
func decodeFrame(data []byte) (packet.Packet, int, error) {
	if len(data) < 8 {
		return packet.Packet{}, 0, nil
	}
	totalFollowing := binary.BigEndian.Uint64(data)
	if totalFollowing > uint64(len(data)) {
		return packet.Packet{}, 0, nil
	}
	frameLen := 8 + int(totalFollowing)
	if len(data) < frameLen {
		return packet.Packet{}, 0, nil
	}

	body := data[8:frameLen]
	if len(body) < 8 {
		return packet.Packet{}, 0, errs.Wrap("wire: frame too short for parameter length field", errs.ErrMalformedPacket)
	}
	parametersLength := int(binary.BigEndian.Uint64(body))
	body = body[8:]
	if len(body) < parametersLength {
		return packet.Packet{}, 0, errs.Wrap("wire: parameter bytes exceed frame", errs.ErrMalformedPacket)
	}

	var m map[string]any
	dec := msgpack.NewDecoder(bytes.NewReader(body[:parametersLength]), mh)
	if err := dec.Decode(&m); err != nil {
		return packet.Packet{}, 0, errs.Wrap(fmt.Sprintf("wire: decoding parameters: %v", err), errs.ErrMalformedPacket)
	}
	body = body[parametersLength:]

	var buffers []buffer.Buffer
	for len(body) > 0 {
		if len(body) < 8 {
			return packet.Packet{}, 0, errs.Wrap("wire: truncated buffer length field", errs.ErrMalformedPacket)
		}
		bufLen := int(binary.BigEndian.Uint64(body))
		body = body[8:]
		if len(body) < bufLen {
			return packet.Packet{}, 0, errs.Wrap("wire: buffer bytes exceed frame", errs.ErrMalformedPacket)
		}
		raw := make([]byte, bufLen)
		copy(raw, body[:bufLen])
		buffers = append(buffers, buffer.New(raw))
		body = body[bufLen:]
	}

	return packet.Packet{Parameters: param.FromMap(m), Buffers: buffers}, frameLen, nil
}

// Decoder accumulates bytes from a stream and yields complete packets
// as they become available, matching original_source's PacketReader,
// which buffers partial TCP reads the same way.
type Decoder struct {
	pending []byte
}

// Feed appends data to the decoder's pending buffer and returns every
// packet that became complete as a result, in arrival order.
func (d *Decoder) Feed(data []byte) ([]packet.Packet, error) {
	d.pending = append(d.pending, data...)

	var out []packet.Packet
	for {
		pkt, n, err := decodeFrame(d.pending)
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, pkt)
		d.pending = d.pending[n:]
	}
}
