// SPDX-License-Identifier: Apache-2.0

package gss

// Name is a GSS-API name: a byte-string interpreted according to its
// NameType (spec.md §3 "Name"). Names are polymorphic over name-type;
// at minimum the Kerberos principal name-type (OidKerberosV5PrincipalName)
// and the generic hostbased-service name-type (OidNTHostbasedService)
// must be recognized by a conforming mechanism.
//
// Name values are owned by the caller once returned from ImportName or a
// mechanism's accept call, and are released with Release.
type Name struct {
	Bytes    []byte
	NameType Oid
}

// ImportName constructs a Name from its flat-text representation and a
// name-type OID. No canonicalization is performed here; that is a
// mechanism-specific operation (spec.md §4.5 step 3, "Canonicalize
// target_name").
func ImportName(bytes []byte, nameType Oid) (*Name, error) {
	if nameType == nil {
		return nil, callError(ErrCallInaccessibleRd)
	}
	b := make([]byte, len(bytes))
	copy(b, bytes)
	return &Name{Bytes: b, NameType: nameType}, nil
}

// String renders the name's bytes as text, for logging and diagnostics.
func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return string(n.Bytes)
}

// Release discards a name's resources. It is always safe to call,
// including on a nil Name.
func (n *Name) Release() {
	if n == nil {
		return
	}
	n.Bytes = nil
}
