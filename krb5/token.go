// SPDX-License-Identifier: Apache-2.0

package krb5

import gss "github.com/golang-auth/gss-core"

// Context-establishment token-ids, following RFC 1964 §1.2 (the same
// values as the teacher's tokenIDKrbAPReq/tokenIDKrbAPRep/tokenIDKrbError,
// but carried here as a 2-byte array rather than a hex string literal).
var (
	tokIDAPReq  = [2]byte{0x01, 0x00}
	tokIDAPRep  = [2]byte{0x02, 0x00}
	tokIDKRBErr = [2]byte{0x03, 0x00}
)

// encodeContextToken wraps payload (a marshaled AP-REQ, AP-REP or
// KRB-ERROR) in the generic OID envelope (spec.md §4.1) with the 2-byte
// inner token-id prefix RFC 1964 §1.2 specifies.
func encodeContextToken(tokID [2]byte, payload []byte) []byte {
	return gss.EncodeTokenWithPrefix(gss.OidKerberosV5, tokID[:], payload)
}

// decodeContextToken reverses encodeContextToken, also verifying the
// envelope names the Kerberos V5 OID.
func decodeContextToken(token []byte) (tokID [2]byte, payload []byte, err error) {
	oid, body, err := gss.DecodeToken(token)
	if err != nil {
		return tokID, nil, err
	}
	if !oid.Equal(gss.OidKerberosV5) {
		return tokID, nil, gss.ErrDefectiveToken
	}
	if len(body) < 2 {
		return tokID, nil, gss.ErrDefectiveToken
	}
	tokID[0], tokID[1] = body[0], body[1]
	return tokID, body[2:], nil
}
