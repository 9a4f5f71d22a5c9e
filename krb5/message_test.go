// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"testing"

	"github.com/stretchr/testify/require"

	gss "github.com/golang-auth/gss-core"
	"github.com/golang-auth/gss-core/internal/krb5cap"
)

func testKey() krb5cap.Key {
	return krb5cap.Key{KeyType: 1, Value: []byte("0123456789012345")}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	fc := &krb5cap.FakeCapability{SessionKey: testKey()}
	binder := capBinding{c: fc}
	key := testKey()

	initiator := &mechContext{binder: binder, isInitiator: true}
	acceptor := &mechContext{binder: binder, isInitiator: false}

	msg := []byte("a message between peers")
	tok, err := initiator.binder.seal(key, initiator.isInitiator, initiator.ourSeq, msg)
	require.NoError(t, err)

	out, confState, err := acceptor.binder.unseal(key, acceptor.isInitiator, acceptor.theirSeq, tok)
	require.NoError(t, err)
	require.False(t, confState)
	require.Equal(t, msg, out)
}

func TestUnwrapRejectsTamperedToken(t *testing.T) {
	fc := &krb5cap.FakeCapability{SessionKey: testKey()}
	binder := capBinding{c: fc}
	key := testKey()

	tok, err := binder.seal(key, true, 0, []byte("hello"))
	require.NoError(t, err)

	tampered := append([]byte(nil), tok...)
	tampered[len(tampered)-1] ^= 0xff

	_, _, err = binder.unseal(key, false, 0, tampered)
	require.ErrorIs(t, err, gss.ErrBadMic)
}

func TestUnwrapRejectsWrongSequenceNumber(t *testing.T) {
	fc := &krb5cap.FakeCapability{SessionKey: testKey()}
	binder := capBinding{c: fc}
	key := testKey()

	tok, err := binder.seal(key, true, 5, []byte("hello"))
	require.NoError(t, err)

	_, _, err = binder.unseal(key, false, 6, tok)
	require.ErrorIs(t, err, gss.ErrBadMic)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	fc := &krb5cap.FakeCapability{SessionKey: testKey()}
	binder := capBinding{c: fc}
	key := testKey()

	msg := []byte("sign me")
	tok, err := binder.sign(key, msg)
	require.NoError(t, err)
	require.NoError(t, binder.verify(key, msg, tok))
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	fc := &krb5cap.FakeCapability{SessionKey: testKey()}
	binder := capBinding{c: fc}
	key := testKey()

	tok, err := binder.sign(key, []byte("sign me"))
	require.NoError(t, err)
	require.Error(t, binder.verify(key, []byte("sign me not"), tok))
}
