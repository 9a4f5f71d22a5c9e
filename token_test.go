// SPDX-License-Identifier: Apache-2.0

package gss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTokenRoundTrip(t *testing.T) {
	payload := []byte("hello, mechanism")

	tok := EncodeToken(OidKerberosV5, payload)

	oid, body, err := DecodeToken(tok)
	require.NoError(t, err)
	require.True(t, oid.Equal(OidKerberosV5))
	require.Equal(t, payload, body)
}

func TestEncodeDecodeTokenWithPrefixRoundTrip(t *testing.T) {
	prefix := []byte{0x01, 0x00}
	payload := []byte("AP-REQ bytes go here")

	tok := EncodeTokenWithPrefix(OidKerberosV5, prefix, payload)

	oid, body, err := DecodeToken(tok)
	require.NoError(t, err)
	require.True(t, oid.Equal(OidKerberosV5))
	require.Equal(t, append(append([]byte{}, prefix...), payload...), body)
}

func TestEncodeTokenLongPayloadUsesMultiByteLength(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}

	tok := EncodeToken(OidKerberosV5, payload)
	oid, body, err := DecodeToken(tok)
	require.NoError(t, err)
	require.True(t, oid.Equal(OidKerberosV5))
	require.Equal(t, payload, body)
}

func TestDecodeTokenRejectsBadOuterTag(t *testing.T) {
	tok := EncodeToken(OidKerberosV5, []byte("payload"))
	tok[0] = 0x61 // not the application-0 constructed tag

	_, _, err := DecodeToken(tok)
	require.ErrorIs(t, err, ErrDefectiveToken)
}

func TestDecodeTokenRejectsTruncatedBody(t *testing.T) {
	tok := EncodeToken(OidKerberosV5, []byte("payload"))

	_, _, err := DecodeToken(tok[:len(tok)-3])
	require.ErrorIs(t, err, ErrDefectiveToken)
}

func TestDecodeTokenRejectsBadOidTag(t *testing.T) {
	tok := EncodeToken(OidKerberosV5, []byte("payload"))
	// The OID tag octet immediately follows the outer tag and its single
	// length octet (OidKerberosV5 is short enough to use one).
	tok[2] = 0x07

	_, _, err := DecodeToken(tok)
	require.ErrorIs(t, err, ErrDefectiveToken)
}

func TestDecodeTokenRejectsEmptyBuffer(t *testing.T) {
	_, _, err := DecodeToken(nil)
	require.ErrorIs(t, err, ErrDefectiveToken)
}
