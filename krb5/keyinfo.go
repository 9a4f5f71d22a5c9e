// SPDX-License-Identifier: Apache-2.0

package krb5

import "github.com/golang-auth/gss-core/internal/krb5cap"

// suite identifies one of the two RFC 1964 §3/§5.1 per-message cipher
// suites, selected from the session key's enctype the way the
// teacher mechanism's keyinfo.go selects a Security Strength Factor from
// key type.
type suite struct {
	sgnAlg     [2]byte
	sealAlg    [2]byte
	cksumUsage uint32
	cksumSize  int
	blockSize  int
	keyed      bool // true for the HMAC suite; not consulted when computing checksums
}

// Historic key-usage numbers from the RFC 1964 GSS Kerberos V5 mechanism,
// predating RFC 3961's usage-number registry: 0 for the original
// DES-CBC-MD5 suite and the historic "GSS_R2" value 22 for the
// 3DES-CBC-HMAC-SHA1-KD suite added by the 3DES amendment. Both suites'
// checksums are computed by Capability.Checksum under the session key
// with the suite's usage number.
const (
	keyUsageDESMD5  = 0
	keyUsageGSS_R2  = 22
)

var (
	suiteDESMD5 = suite{
		sgnAlg:     [2]byte{0x00, 0x00},
		sealAlg:    [2]byte{0xff, 0xff},
		cksumUsage: keyUsageDESMD5,
		cksumSize:  8,
		blockSize:  8,
		keyed:      false,
	}
	suite3DES = suite{
		sgnAlg:     [2]byte{0x04, 0x00},
		sealAlg:    [2]byte{0x00, 0x00},
		cksumUsage: keyUsageGSS_R2,
		cksumSize:  20,
		blockSize:  8,
		keyed:      true,
	}
)

// suiteForKey selects the RFC 1964 cipher suite for key, or fails with
// an error wrapping gss.ErrFailure if key's enctype has no legacy GSS
// Kerberos suite (spec.md §4.6 only defines these two).
func suiteForKey(key krb5cap.Key) (suite, error) {
	switch key.KeyType {
	case 1, 3:
		return suiteDESMD5, nil
	case 16:
		return suite3DES, nil
	default:
		return suite{}, errUnsupportedEnctype
	}
}
