package recorder

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	errShortRecord = errors.New("record too short")
	errBadHeader   = errors.New("record header length out of range")
	errChecksum    = errors.New("record checksum mismatch")
)

func encodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

// decodeRecord returns copies of header and payload.
func decodeRecord(b []byte) (header, payload []byte, err error) {
	if len(b) < 1+4 {
		return nil, nil, errShortRecord
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen > uint64(len(b)) || n+int(hlen)+4 > len(b) {
		return nil, nil, errBadHeader
	}
	h := b[n : n+int(hlen)]
	p := b[n+int(hlen) : len(b)-4]
	crc := crc32.Update(0, castagnoli, h)
	crc = crc32.Update(crc, castagnoli, p)
	if crc != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, nil, errChecksum
	}
	return append([]byte(nil), h...), append([]byte(nil), p...), nil
}
