// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"testing"

	"github.com/stretchr/testify/require"

	gss "github.com/golang-auth/gss-core"
	"github.com/golang-auth/gss-core/internal/krb5cap"
)

func sharedKey() krb5cap.Key {
	return krb5cap.Key{KeyType: 1, Value: []byte("0123456789012345")}
}

func newTestPair(key krb5cap.Key) (initiator, acceptor *mechanism) {
	initiator = &mechanism{cap: &krb5cap.FakeCapability{SessionKey: key, ClientName: "alice", ClientRealm: "EXAMPLE.COM"}}
	acceptor = &mechanism{cap: &krb5cap.FakeCapability{SessionKey: key, ClientName: "alice", ClientRealm: "EXAMPLE.COM"}}
	return
}

func TestHandshakeOneLeg(t *testing.T) {
	initiator, acceptor := newTestPair(sharedKey())
	target, err := gss.ImportName([]byte("service@host"), gss.OidNTHostbasedService)
	require.NoError(t, err)

	initPriv, reqToken, _, err := initiator.InitSecContext(nil, nil, target, 0, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, reqToken)

	acceptPriv, repToken, peer, _, err := acceptor.AcceptSecContext(nil, nil, nil, reqToken)
	require.NoError(t, err)
	require.Nil(t, repToken)
	require.Equal(t, "alice@EXAMPLE.COM", peer.String())

	ic := initPriv.(*mechContext)
	ac := acceptPriv.(*mechContext)
	require.True(t, ic.isInitiator)
	require.False(t, ac.isInitiator)
	require.False(t, ic.waitingForMutual)

	msg := []byte("payload")
	tok, _, err := initiator.Wrap(initPriv, msg, false)
	require.NoError(t, err)
	out, _, err := acceptor.Unwrap(acceptPriv, tok)
	require.NoError(t, err)
	require.Equal(t, msg, out)
}

func TestHandshakeMutualAuth(t *testing.T) {
	initiator, acceptor := newTestPair(sharedKey())
	target, err := gss.ImportName([]byte("service@host"), gss.OidNTHostbasedService)
	require.NoError(t, err)

	initPriv, reqToken, _, err := initiator.InitSecContext(nil, nil, target, gss.ContextFlagMutual, nil, nil)
	require.True(t, gss.ContinueNeeded(err))

	acceptPriv, repToken, _, _, err := acceptor.AcceptSecContext(nil, nil, nil, reqToken)
	require.NoError(t, err)
	require.NotNil(t, repToken)

	initPriv, outTok, _, err := initiator.InitSecContext(nil, initPriv, target, gss.ContextFlagMutual, nil, repToken)
	require.NoError(t, err)
	require.Nil(t, outTok)

	ic := initPriv.(*mechContext)
	require.False(t, ic.waitingForMutual)

	msg := []byte("mutual payload")
	tok, _, err := acceptor.Wrap(acceptPriv, msg, false)
	require.NoError(t, err)
	out, _, err := initiator.Unwrap(initPriv, tok)
	require.NoError(t, err)
	require.Equal(t, msg, out)
}

func TestUnwrapReplayRejected(t *testing.T) {
	initiator, acceptor := newTestPair(sharedKey())
	target, err := gss.ImportName([]byte("service@host"), gss.OidNTHostbasedService)
	require.NoError(t, err)

	initPriv, reqToken, _, err := initiator.InitSecContext(nil, nil, target, 0, nil, nil)
	require.NoError(t, err)
	acceptPriv, _, _, _, err := acceptor.AcceptSecContext(nil, nil, nil, reqToken)
	require.NoError(t, err)

	tok, _, err := initiator.Wrap(initPriv, []byte("one"), false)
	require.NoError(t, err)
	_, _, err = acceptor.Unwrap(acceptPriv, tok)
	require.NoError(t, err)

	// Replaying the same token is rejected: the acceptor's expected
	// sequence number has already advanced past it, and RFC 1964 has no
	// windowing (spec.md §5 Concurrency & Resource model).
	_, _, err = acceptor.Unwrap(acceptPriv, tok)
	require.ErrorIs(t, err, gss.ErrBadMic)
}

func TestAcceptSecContextRejectsBadTicket(t *testing.T) {
	initiator, acceptor := newTestPair(sharedKey())
	acceptor.cap.(*krb5cap.FakeCapability).Reject = gss.ErrDefectiveToken

	target, err := gss.ImportName([]byte("service@host"), gss.OidNTHostbasedService)
	require.NoError(t, err)
	_, reqToken, _, err := initiator.InitSecContext(nil, nil, target, 0, nil, nil)
	require.NoError(t, err)

	_, _, _, _, err = acceptor.AcceptSecContext(nil, nil, nil, reqToken)
	require.Error(t, err)
}

func TestInitSecContextRejectsChannelBindings(t *testing.T) {
	initiator, _ := newTestPair(sharedKey())
	target, err := gss.ImportName([]byte("service@host"), gss.OidNTHostbasedService)
	require.NoError(t, err)

	_, _, _, err = initiator.InitSecContext(nil, nil, target, 0, []byte("bindings"), nil)
	require.ErrorIs(t, err, gss.ErrBadBindings)
}

func TestAcceptSecContextRejectsChannelBindings(t *testing.T) {
	initiator, acceptor := newTestPair(sharedKey())
	target, err := gss.ImportName([]byte("service@host"), gss.OidNTHostbasedService)
	require.NoError(t, err)

	_, reqToken, _, err := initiator.InitSecContext(nil, nil, target, 0, nil, nil)
	require.NoError(t, err)

	_, _, _, _, err = acceptor.AcceptSecContext(nil, nil, []byte("bindings"), reqToken)
	require.ErrorIs(t, err, gss.ErrBadBindings)
}
