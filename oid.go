// SPDX-License-Identifier: Apache-2.0

package gss

import "slices"

// Oid represents a DER-encoded object identifier value, excluding its
// ASN.1 tag and length octets (spec.md §3 "Object identifier"). Oid
// values are immutable once created; equality is byte-exact.
type Oid []byte

// Equal reports whether two OIDs are byte-for-byte identical.
func (o Oid) Equal(other Oid) bool {
	return slices.Equal(o, other)
}

// Well-known object identifiers (spec.md §6).
var (
	// OidKerberosV5 is the Kerberos V5 mechanism OID, 1.2.840.113554.1.2.2.
	OidKerberosV5 = Oid{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x12, 0x01, 0x02, 0x02}

	// OidKerberosV5PrincipalName is the Kerberos principal name-type OID,
	// 1.2.840.113554.1.2.2.1.
	OidKerberosV5PrincipalName = Oid{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x12, 0x01, 0x02, 0x02, 0x01}

	// OidNTHostbasedService is the generic hostbased-service name-type OID,
	// 1.2.840.113554.1.2.1.4.
	OidNTHostbasedService = Oid{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x12, 0x01, 0x02, 0x01, 0x04}

	// OidNTUserName is the generic user-name name-type OID, 1.2.840.113554.1.2.1.1.
	OidNTUserName = Oid{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x12, 0x01, 0x02, 0x01, 0x01}

	// OidNTStringUID is the generic string-uid name-type OID, 1.2.840.113554.1.2.1.3.
	OidNTStringUID = Oid{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x12, 0x01, 0x02, 0x01, 0x03}
)

// maxOidSetMembers bounds the number of elements an OidSet will accept,
// reported as FAILURE on overflow per spec.md §4.2.
const maxOidSetMembers = 1 << 20

// OidSet is an unordered, duplicate-free collection of object identifiers
// (spec.md §3 "OID set"). The zero value is an empty set ready to use;
// CreateEmptyOidSet is provided for parity with the rest of the generic
// surface's Create*/Release naming.
type OidSet struct {
	members []Oid
}

// CreateEmptyOidSet returns a new, empty OID set.
func CreateEmptyOidSet() *OidSet {
	return &OidSet{}
}

// AddMember appends oid to the set. Adding an OID that is already present
// is a no-op success (spec.md §4.2, §8 "OID-set idempotence").
func (s *OidSet) AddMember(oid Oid) error {
	if s.TestMember(oid) {
		return nil
	}
	if len(s.members) >= maxOidSetMembers {
		return newFatal(errFailure)
	}
	s.members = append(s.members, oid)
	return nil
}

// TestMember reports whether oid is a member of the set.
func (s *OidSet) TestMember(oid Oid) bool {
	for _, m := range s.members {
		if m.Equal(oid) {
			return true
		}
	}
	return false
}

// Len returns the number of members in the set.
func (s *OidSet) Len() int {
	return len(s.members)
}

// Members returns the set's members. The returned slice must not be
// mutated by the caller.
func (s *OidSet) Members() []Oid {
	return s.members
}

// Release discards the set's contents. Included for symmetry with the
// release operations on names, credentials and contexts; in Go there is
// nothing left to free once the OidSet is no longer referenced, but
// calling Release makes the ownership transfer explicit and matches the
// "owned by the caller after return, released via a dedicated operation"
// contract from spec.md §3.
func (s *OidSet) Release() {
	s.members = nil
}
