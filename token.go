// SPDX-License-Identifier: Apache-2.0

package gss

import "fmt"

// Token encapsulation (spec.md §4.1). Every token that crosses the wire,
// regardless of mechanism, is wrapped in this OID-tagged envelope:
//
//	0x60 <DER length> 0x06 <DER length> <oid bytes> <payload>
//
// This mirrors the "Generic GSS-API token framing" byte-for-byte,
// following the encode/decode pair in original_source/lib/misc.c
// (_gss_encapsulate_token_prefix / _gss_decapsulate_token) rather than
// any single mechanism's notion of a token -- it has to be usable by
// every mechanism in the registry, including ones not yet written.
const (
	tagApplication0 = 0x60
	tagOid          = 0x06
)

// EncodeToken serializes (oid, payload) into the outer envelope.
func EncodeToken(oid Oid, payload []byte) []byte {
	return EncodeTokenWithPrefix(oid, nil, payload)
}

// EncodeTokenWithPrefix is the encode_with_prefix variant from spec.md
// §4.1: prefix (eg. a 2-byte inner token-id) is logically part of the
// payload and is prepended before the length of the whole inner body is
// computed.
func EncodeTokenWithPrefix(oid Oid, prefix []byte, payload []byte) []byte {
	inner := make([]byte, 0, 2+len(oid)+len(prefix)+len(payload))
	inner = append(inner, tagOid)
	inner = appendDerLength(inner, len(oid))
	inner = append(inner, oid...)
	inner = append(inner, prefix...)
	inner = append(inner, payload...)

	out := make([]byte, 0, 1+5+len(inner))
	out = append(out, tagApplication0)
	out = appendDerLength(out, len(inner))
	out = append(out, inner...)
	return out
}

// DecodeToken parses the outer envelope, returning the mechanism OID and
// a view onto the payload bytes within buf. The caller must not mutate
// buf until it is done with the returned payload. Any deviation from the
// expected encoding fails with ErrDefectiveToken (spec.md §4.1).
func DecodeToken(buf []byte) (oid Oid, payload []byte, err error) {
	if len(buf) < 2 || buf[0] != tagApplication0 {
		return nil, nil, newFatal(errDefectiveToken, fmt.Errorf("gss: bad outer tag"))
	}

	length, rest, err := parseDerLength(buf[1:])
	if err != nil {
		return nil, nil, newFatal(errDefectiveToken, err)
	}
	if length > len(rest) {
		return nil, nil, newFatal(errDefectiveToken, fmt.Errorf("gss: truncated token"))
	}
	body := rest[:length]

	if len(body) < 2 || body[0] != tagOid {
		return nil, nil, newFatal(errDefectiveToken, fmt.Errorf("gss: bad OID tag"))
	}
	oidLen, body, err := parseDerLength(body[1:])
	if err != nil {
		return nil, nil, newFatal(errDefectiveToken, err)
	}
	if oidLen > len(body) {
		return nil, nil, newFatal(errDefectiveToken, fmt.Errorf("gss: truncated OID"))
	}

	oid = Oid(body[:oidLen])
	payload = body[oidLen:]
	return oid, payload, nil
}

// appendDerLength appends the DER definite-length encoding of n to buf.
func appendDerLength(buf []byte, n int) []byte {
	if n < 0x80 {
		return append(buf, byte(n))
	}

	var lenBytes []byte
	for v := n; v > 0; v >>= 8 {
		lenBytes = append([]byte{byte(v)}, lenBytes...)
	}
	buf = append(buf, 0x80|byte(len(lenBytes)))
	return append(buf, lenBytes...)
}

// parseDerLength parses a DER definite-length value from the start of
// buf, returning the length and the remaining bytes after the length
// octets.
func parseDerLength(buf []byte) (int, []byte, error) {
	if len(buf) < 1 {
		return 0, nil, fmt.Errorf("gss: truncated length")
	}

	first := buf[0]
	if first&0x80 == 0 {
		return int(first), buf[1:], nil
	}

	nOctets := int(first &^ 0x80)
	if nOctets == 0 || nOctets > 4 || len(buf) < 1+nOctets {
		return 0, nil, fmt.Errorf("gss: malformed length octets")
	}

	length := 0
	for _, b := range buf[1 : 1+nOctets] {
		length = length<<8 | int(b)
	}
	return length, buf[1+nOctets:], nil
}
