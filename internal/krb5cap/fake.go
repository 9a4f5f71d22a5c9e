// SPDX-License-Identifier: Apache-2.0

package krb5cap

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/gob"
	"fmt"
	mathrand "math/rand"
	"time"
)

// FakeKeyType is an enctype for the SessionKey given to FakeCapability, chosen to select
// the RFC 1964 DES-CBC-MD5 suite (see krb5/keyinfo.go) without pulling in
// a real DES key schedule for tests.
const FakeKeyType = 1

// FakeCapability is an in-memory stand-in for Gokrb5Capability, letting
// the krb5 package's tests drive a full context-establishment and
// wrap/unwrap handshake without a live KDC (spec.md §8 Testable
// Properties). Two FakeCapability values sharing the same SessionKey
// simulate the initiator and acceptor sides of one ticket.
type FakeCapability struct {
	// SessionKey is returned as every acquired ticket's session key.
	// Tests construct one shared key and build two FakeCapability
	// values around it, one per role.
	SessionKey Key

	// ClientName/ClientRealm populate acquired tickets, as if a real KDC
	// had issued them for this client; the service name is the one
	// passed to AcquireTicket/AcquireTicketWithPrincipal.
	ClientName  string
	ClientRealm string

	// Reject, if non-nil, is returned by ParseAPReq/ParseAPRep/Checksum
	// to simulate a keytab mismatch, replay, or tamper detection.
	Reject error
}

var _ Capability = (*FakeCapability)(nil)

// fakeTicket is the payload FakeCapability round-trips as Ticket.Raw --
// there is no real DER ASN.1 Kerberos ticket here, just enough state for
// ParseAPReq to recover the principal names a real KDC would have
// encrypted into the ticket. The session key is not carried: ParseAPReq
// uses the acceptor-side FakeCapability's own SessionKey.
type fakeTicket struct {
	ServiceName string
	ClientName  string
	ClientRealm string
}

// fakeAPReq is the payload BuildAPReq/ParseAPReq exchange in place of a
// real marshaled AP-REQ.
type fakeAPReq struct {
	Ticket         fakeTicket
	GSSChecksum    []byte
	MutualRequired bool
	CTime          time.Time
	Cusec          int
	SeqNumber      uint32
}

// fakeAPRep is the payload BuildAPRep/ParseAPRep exchange in place of a
// real marshaled AP-REP.
type fakeAPRep struct {
	CTime     time.Time
	Cusec     int
	SeqNumber uint32
}

func (f *FakeCapability) AcquireTicket(service string) (Ticket, error) {
	return f.ticket(service), nil
}

func (f *FakeCapability) AcquireTicketWithPrincipal(principal, keytabPath, krbConfPath, service string) (Ticket, error) {
	return f.ticket(service), nil
}

func (f *FakeCapability) ticket(service string) Ticket {
	t := fakeTicket{ServiceName: service, ClientName: f.ClientName, ClientRealm: f.ClientRealm}
	return Ticket{
		Raw:         mustGobEncode(t),
		SessionKey:  f.SessionKey,
		ServiceName: service,
		ClientName:  f.ClientName,
		ClientRealm: f.ClientRealm,
	}
}

func (f *FakeCapability) BuildAPReq(ticket Ticket, gssChecksum []byte, mutualRequired bool) ([]byte, uint32, time.Time, int, error) {
	var t fakeTicket
	if err := mustGobDecode(ticket.Raw, &t); err != nil {
		return nil, 0, time.Time{}, 0, err
	}

	seqNumber := mathrand.Uint32() & 0x3fffffff
	cTime := time.Now().UTC().Truncate(time.Second)
	cUsec := 0

	req := fakeAPReq{
		Ticket:         t,
		GSSChecksum:    gssChecksum,
		MutualRequired: mutualRequired,
		CTime:          cTime,
		Cusec:          cUsec,
		SeqNumber:      seqNumber,
	}
	return mustGobEncode(req), seqNumber, cTime, cUsec, nil
}

func (f *FakeCapability) ParseAPReq(ktFile string, apReqBytes []byte, skew time.Duration) (Ticket, Authenticator, error) {
	if f.Reject != nil {
		return Ticket{}, Authenticator{}, f.Reject
	}

	var req fakeAPReq
	if err := mustGobDecode(apReqBytes, &req); err != nil {
		return Ticket{}, Authenticator{}, err
	}

	now := time.Now().UTC()
	if now.Sub(req.CTime) > skew || req.CTime.Sub(now) > skew {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: fake: clock skew too large")
	}

	tk := Ticket{
		Raw:         mustGobEncode(req.Ticket),
		SessionKey:  f.SessionKey,
		ServiceName: req.Ticket.ServiceName,
		ClientName:  req.Ticket.ClientName,
		ClientRealm: req.Ticket.ClientRealm,
	}
	auth := Authenticator{
		ClientName:     req.Ticket.ClientName,
		ClientRealm:    req.Ticket.ClientRealm,
		CTime:          req.CTime,
		Cusec:          req.Cusec,
		SeqNumber:      req.SeqNumber,
		GSSChecksum:    req.GSSChecksum,
		MutualRequired: req.MutualRequired,
	}
	return tk, auth, nil
}

func (f *FakeCapability) BuildAPRep(ticket Ticket, cTime time.Time, cUsec int) ([]byte, uint32, error) {
	seqNumber := mathrand.Uint32() & 0x3fffffff
	rep := fakeAPRep{CTime: cTime, Cusec: cUsec, SeqNumber: seqNumber}
	return mustGobEncode(rep), seqNumber, nil
}

func (f *FakeCapability) ParseAPRep(ticket Ticket, apRepBytes []byte) (time.Time, int, uint32, error) {
	if f.Reject != nil {
		return time.Time{}, 0, 0, f.Reject
	}
	var rep fakeAPRep
	if err := mustGobDecode(apRepBytes, &rep); err != nil {
		return time.Time{}, 0, 0, err
	}
	return rep.CTime, rep.Cusec, rep.SeqNumber, nil
}

// Checksum computes an HMAC-MD5 over data, standing in for the real
// RFC 1964 DES-MAC-MD5/3DES-HMAC-SHA1 checksum so tests can exercise
// Wrap/Unwrap/GetMIC/VerifyMIC's framing without a real cipher.
func (f *FakeCapability) Checksum(key Key, keyUsage uint32, data []byte) ([]byte, error) {
	if f.Reject != nil {
		return nil, f.Reject
	}
	h := hmac.New(md5.New, key.Value)
	_, _ = h.Write(data)
	sum := h.Sum(nil)
	return sum[:8], nil
}

// EncryptCBC/DecryptCBC XOR plaintext against a keystream derived from
// key and iv, a reversible stand-in for DES-CBC adequate for exercising
// the sequence-number encryption framing in tests.
func (f *FakeCapability) EncryptCBC(key Key, iv []byte, plaintext []byte) ([]byte, error) {
	return fakeXOR(key, iv, plaintext), nil
}

func (f *FakeCapability) DecryptCBC(key Key, iv []byte, ciphertext []byte) ([]byte, error) {
	return fakeXOR(key, iv, ciphertext), nil
}

func fakeXOR(key Key, iv []byte, in []byte) []byte {
	h := hmac.New(md5.New, key.Value)
	_, _ = h.Write(iv)
	stream := h.Sum(nil)
	out := make([]byte, len(in))
	for i := range in {
		out[i] = in[i] ^ stream[i%len(stream)]
	}
	return out
}

func (f *FakeCapability) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *FakeCapability) KeyInfo(key Key) (int, int, error) {
	return 8, 8, nil
}

func mustGobEncode(v interface{}) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func mustGobDecode(b []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
