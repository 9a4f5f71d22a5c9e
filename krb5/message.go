// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"encoding/binary"
	"fmt"

	gss "github.com/golang-auth/gss-core"
	"github.com/golang-auth/gss-core/internal/krb5cap"
)

// RFC 1964 per-message token-ids (spec.md §4.6; the MIC token-id 0x0101
// follows RFC 1964 §1.2.1, reused here for the sign-only GetMIC/VerifyMIC
// variant documented in SPEC_FULL.md §6).
var (
	tokIDWrap = [2]byte{0x02, 0x01}
	tokIDMIC  = [2]byte{0x01, 0x01}
)

const fillerFFFF = uint16(0xffff)

func (cb *capBinding) seal(key krb5cap.Key, isInitiator bool, ourSeq uint64, plaintext []byte) ([]byte, error) {
	s, err := suiteForKey(key)
	if err != nil {
		return nil, err
	}

	confounder, err := cb.c.RandomBytes(8)
	if err != nil {
		return nil, fmt.Errorf("krb5: generating confounder: %w", err)
	}

	pad := padLength(len(plaintext))
	body := make([]byte, 0, 8+len(confounder)+len(plaintext)+len(pad))
	header := wrapHeader(s)
	body = append(body, header[:]...)
	body = append(body, confounder...)
	body = append(body, plaintext...)
	body = append(body, pad...)

	cksum, err := cb.c.Checksum(key, s.cksumUsage, body)
	if err != nil {
		return nil, fmt.Errorf("krb5: %w", gss.ErrFailure)
	}
	if len(cksum) != s.cksumSize {
		return nil, fmt.Errorf("krb5: unexpected checksum size %d: %w", len(cksum), gss.ErrFailure)
	}

	seqPlain := make([]byte, 8)
	binary.LittleEndian.PutUint32(seqPlain[:4], uint32(ourSeq))
	if isInitiator {
		// trailing 4 bytes left zero
	} else {
		copy(seqPlain[4:], []byte{0xff, 0xff, 0xff, 0xff})
	}
	eseqno, err := cb.c.EncryptCBC(key, cksum[:8], seqPlain)
	if err != nil {
		return nil, fmt.Errorf("krb5: encrypting sequence number: %w", err)
	}

	out := make([]byte, 0, 8+8+len(cksum)+8+len(confounder)+len(plaintext)+len(pad))
	out = append(out, header[:]...)
	out = append(out, eseqno...)
	out = append(out, cksum...)
	out = append(out, confounder...)
	out = append(out, plaintext...)
	out = append(out, pad...)

	return gss.EncodeToken(gss.OidKerberosV5, out), nil
}

func (cb *capBinding) unseal(key krb5cap.Key, isInitiator bool, theirSeq uint64, token []byte) ([]byte, bool, error) {
	oid, body, err := gss.DecodeToken(token)
	if err != nil {
		return nil, false, err
	}
	if !oid.Equal(gss.OidKerberosV5) {
		return nil, false, gss.ErrDefectiveToken
	}

	s, serr := suiteForKey(key)
	if serr != nil {
		return nil, false, serr
	}
	minLen := 24 + s.cksumSize
	if len(body) < minLen {
		return nil, false, gss.ErrBadMic
	}
	if body[0] != tokIDWrap[0] || body[1] != tokIDWrap[1] {
		return nil, false, gss.ErrBadMic
	}
	sealAlg := binary.LittleEndian.Uint16(body[4:6])
	filler := binary.LittleEndian.Uint16(body[6:8])
	if filler != fillerFFFF {
		return nil, false, gss.ErrBadMic
	}
	confState := sealAlg != fillerFFFF

	eseqno := body[8:16]
	cksum := body[16 : 16+s.cksumSize]
	rest := body[16+s.cksumSize:]
	if len(rest) < 8 {
		return nil, false, gss.ErrBadMic
	}
	confounder := rest[:8]
	plaintextAndPad := rest[8:]

	seqPlain, err := cb.c.DecryptCBC(key, cksum[:8], eseqno)
	if err != nil || len(seqPlain) != 8 {
		return nil, false, gss.ErrBadMic
	}
	var wantTrailer [4]byte
	if isInitiator {
		wantTrailer = [4]byte{0xff, 0xff, 0xff, 0xff}
	}
	for i := 0; i < 4; i++ {
		if seqPlain[4+i] != wantTrailer[i] {
			return nil, false, gss.ErrBadMic
		}
	}
	seq := uint64(binary.LittleEndian.Uint32(seqPlain[:4]))
	if seq != theirSeq {
		return nil, false, gss.ErrBadMic
	}

	if len(plaintextAndPad) == 0 {
		return nil, false, gss.ErrBadMic
	}
	p := int(plaintextAndPad[len(plaintextAndPad)-1])
	if p < 1 || p > 8 || p > len(plaintextAndPad) {
		return nil, false, gss.ErrBadMic
	}
	for i := len(plaintextAndPad) - p; i < len(plaintextAndPad); i++ {
		if int(plaintextAndPad[i]) != p {
			return nil, false, gss.ErrBadMic
		}
	}
	plaintext := plaintextAndPad[:len(plaintextAndPad)-p]

	header := body[:8]
	recomputeBody := make([]byte, 0, len(header)+len(confounder)+len(plaintextAndPad))
	recomputeBody = append(recomputeBody, header...)
	recomputeBody = append(recomputeBody, confounder...)
	recomputeBody = append(recomputeBody, plaintextAndPad...)

	wantCksum, err := cb.c.Checksum(key, s.cksumUsage, recomputeBody)
	if err != nil || !constantTimeEqual(wantCksum, cksum) {
		return nil, false, gss.ErrBadMic
	}

	return plaintext, confState, nil
}

func (cb *capBinding) sign(key krb5cap.Key, plaintext []byte) ([]byte, error) {
	s, err := suiteForKey(key)
	if err != nil {
		return nil, err
	}

	header := micHeader(s)
	body := make([]byte, 0, len(header)+len(plaintext))
	body = append(body, header[:]...)
	body = append(body, plaintext...)

	cksum, err := cb.c.Checksum(key, s.cksumUsage, body)
	if err != nil {
		return nil, fmt.Errorf("krb5: %w", gss.ErrFailure)
	}

	out := make([]byte, 0, len(header)+len(cksum))
	out = append(out, header[:]...)
	out = append(out, cksum...)
	return gss.EncodeToken(gss.OidKerberosV5, out), nil
}

func (cb *capBinding) verify(key krb5cap.Key, plaintext []byte, token []byte) error {
	oid, body, err := gss.DecodeToken(token)
	if err != nil {
		return err
	}
	if !oid.Equal(gss.OidKerberosV5) {
		return gss.ErrDefectiveToken
	}

	s, serr := suiteForKey(key)
	if serr != nil {
		return serr
	}
	if len(body) != 8+s.cksumSize {
		return gss.ErrBadMic
	}
	if body[0] != tokIDMIC[0] || body[1] != tokIDMIC[1] {
		return gss.ErrBadMic
	}
	if binary.LittleEndian.Uint16(body[4:6]) != fillerFFFF || binary.LittleEndian.Uint16(body[6:8]) != fillerFFFF {
		return gss.ErrBadMic
	}
	cksum := body[8:]

	header := body[:8]
	recompute := make([]byte, 0, len(header)+len(plaintext))
	recompute = append(recompute, header...)
	recompute = append(recompute, plaintext...)

	want, err := cb.c.Checksum(key, s.cksumUsage, recompute)
	if err != nil || !constantTimeEqual(want, cksum) {
		return gss.ErrBadMic
	}
	return nil
}

func wrapHeader(s suite) [8]byte {
	var h [8]byte
	h[0], h[1] = tokIDWrap[0], tokIDWrap[1]
	h[2], h[3] = s.sgnAlg[0], s.sgnAlg[1]
	binary.LittleEndian.PutUint16(h[4:6], fillerFFFF) // sealing never actually applied, see DESIGN.md
	binary.LittleEndian.PutUint16(h[6:8], fillerFFFF)
	return h
}

func micHeader(s suite) [8]byte {
	var h [8]byte
	h[0], h[1] = tokIDMIC[0], tokIDMIC[1]
	h[2], h[3] = s.sgnAlg[0], s.sgnAlg[1]
	binary.LittleEndian.PutUint16(h[4:6], fillerFFFF)
	binary.LittleEndian.PutUint16(h[6:8], fillerFFFF)
	return h
}

func padLength(n int) []byte {
	p := 8 - (n % 8)
	pad := make([]byte, p)
	for i := range pad {
		pad[i] = byte(p)
	}
	return pad
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// capBinding adapts an krb5cap.Capability for use by the free functions
// above, which are methods on it purely so message.go reads like the
// teacher's message_token.go (receiver-style Sign/Seal/Unmarshal calls)
// while still taking the capability as an explicit dependency.
type capBinding struct {
	c krb5cap.Capability
}
