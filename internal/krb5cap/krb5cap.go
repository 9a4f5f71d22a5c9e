// SPDX-License-Identifier: Apache-2.0

// Package krb5cap isolates the krb5 mechanism from the concrete Kerberos
// implementation it runs on. spec.md §6 treats the underlying Kerberos
// primitives (ticket acquisition, AP-REQ/AP-REP construction, keyed
// checksums, raw block encryption) as an abstract capability rather than
// mandating a specific library, so that the handshake and per-message
// state machines in package krb5 can be exercised against a fake
// implementation without a live KDC (spec.md §8 Testable Properties).
//
// Capability is the production surface, backed by
// github.com/jcmturner/gokrb5/v8. A second, in-memory implementation
// lives in fake.go for use by the krb5 package's tests.
package krb5cap

import "time"

// Ticket bundles the pieces of an acquired service ticket that the krb5
// mechanism needs: the encrypted ticket to place in an AP-REQ, its
// session key, and the names of the parties it was issued to/for.
type Ticket struct {
	Raw         []byte // the marshaled, still-encrypted Kerberos Ticket
	SessionKey  Key
	ServiceName string
	ClientName  string
	ClientRealm string
}

// Key is an opaque Kerberos encryption key: an enctype plus key bytes.
// Capability implementations interpret KeyType according to the IANA
// Kerberos encryption type registry (RFC 3961 §8).
type Key struct {
	KeyType int32
	Value   []byte
}

// Authenticator is the subset of a decrypted AP-REQ authenticator the
// acceptor needs after ParseAPReq succeeds.
type Authenticator struct {
	ClientName    string
	ClientRealm   string
	CTime         time.Time
	Cusec         int
	SeqNumber     uint32
	GSSChecksum   []byte // the raw 0x8003 "GSS" checksum bytes, at least 24 octets
	SubKey        *Key
	MutualRequired bool
}

// Capability is the set of Kerberos operations the krb5 mechanism needs,
// independent of how they are actually carried out (spec.md §6).
type Capability interface {
	// AcquireTicket obtains a service ticket for service using the
	// caller's default credentials cache (KRB5CCNAME).
	AcquireTicket(service string) (Ticket, error)

	// AcquireTicketWithPrincipal obtains a service ticket for service
	// using an explicit principal and keytab, bypassing the default
	// credentials cache.
	AcquireTicketWithPrincipal(principal, keytabPath, krbConfPath, service string) (Ticket, error)

	// BuildAPReq constructs a marshaled AP-REQ for ticket, embedding
	// gssChecksum (the RFC 1964 §1.1.1 "GSS" checksum, tag 0x8003) in the
	// authenticator and setting the mutual-required option if requested.
	// It returns the sequence number and timestamp chosen for the
	// authenticator, which the caller must retain to verify a subsequent
	// AP-REP.
	BuildAPReq(ticket Ticket, gssChecksum []byte, mutualRequired bool) (apReq []byte, seqNumber uint32, cTime time.Time, cUsec int, err error)

	// ParseAPReq decrypts and validates an AP-REQ against the acceptor's
	// keytab (KRB5_KTNAME), within the given clock-skew tolerance.
	ParseAPReq(ktFile string, apReq []byte, skew time.Duration) (Ticket, Authenticator, error)

	// BuildAPRep constructs a marshaled AP-REP reflecting the
	// initiator's cTime/cUsec, choosing a fresh sequence number.
	BuildAPRep(ticket Ticket, cTime time.Time, cUsec int) (apRep []byte, seqNumber uint32, err error)

	// ParseAPRep decrypts an AP-REP using the ticket's session key,
	// returning the timestamps and sequence number the acceptor chose.
	ParseAPRep(ticket Ticket, apRep []byte) (cTime time.Time, cUsec int, seqNumber uint32, err error)

	// Checksum computes a keyed checksum over data, per RFC 3961's
	// key-derivation procedure for the given key usage number.
	Checksum(key Key, keyUsage uint32, data []byte) ([]byte, error)

	// EncryptCBC and DecryptCBC perform raw CBC-mode block encryption
	// under key with the given initialization vector, and no additional
	// padding beyond what the caller supplies -- the primitive RFC 1964
	// needs to protect the confounder, plaintext and sequence number.
	EncryptCBC(key Key, iv []byte, plaintext []byte) ([]byte, error)
	DecryptCBC(key Key, iv []byte, ciphertext []byte) ([]byte, error)

	// RandomBytes returns n cryptographically random bytes, used for the
	// confounder.
	RandomBytes(n int) ([]byte, error)

	// KeyInfo reports the block size and checksum size
	// associated with a key's enctype, needed to lay out the RFC 1964
	// token (spec.md §4.6).
	KeyInfo(key Key) (blockSize, checksumSize int, err error)
}
