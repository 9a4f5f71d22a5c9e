// SPDX-License-Identifier: Apache-2.0

package gss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubMechContext is the mechanism-private context state handed back by
// stubMechanism, so tests can observe whether DeleteSecContext was called
// on it.
type stubMechContext struct {
	deleted bool
}

// stubMechanism is a minimal Mechanism used to exercise the generic
// dispatch surface (registration, cleanup, idempotence) without needing
// a real mechanism like krb5.
type stubMechanism struct {
	oid Oid

	initErr   error
	acceptErr error
	deleteErr error

	deleteCalls int
}

var _ Mechanism = (*stubMechanism)(nil)

func (m *stubMechanism) Oid() Oid { return m.oid }

func (m *stubMechanism) InitSecContext(cred MechCred, priv MechContext, targetName *Name, reqFlags ContextFlag, bindings []byte, inputToken []byte) (MechContext, []byte, ContextFlag, error) {
	if m.initErr != nil {
		// A mechanism that fails partway through still hands back the
		// half-built state it allocated, for the generic layer to clean
		// up (spec.md §8 "half-built context cleanup").
		return &stubMechContext{}, nil, 0, m.initErr
	}
	return &stubMechContext{}, []byte("init-token"), reqFlags, nil
}

func (m *stubMechanism) AcceptSecContext(cred MechCred, priv MechContext, bindings []byte, inputToken []byte) (MechContext, []byte, *Name, ContextFlag, error) {
	if m.acceptErr != nil {
		return &stubMechContext{}, nil, nil, 0, m.acceptErr
	}
	return &stubMechContext{}, nil, nil, 0, nil
}

func (m *stubMechanism) DeleteSecContext(priv MechContext) error {
	m.deleteCalls++
	if sc, ok := priv.(*stubMechContext); ok && sc != nil {
		sc.deleted = true
	}
	return m.deleteErr
}

func (m *stubMechanism) ContextTime(priv MechContext) (time.Duration, error) {
	return 0, ErrUnavailable
}

func (m *stubMechanism) Wrap(priv MechContext, msg []byte, confReq bool) ([]byte, bool, error) {
	return msg, false, nil
}

func (m *stubMechanism) Unwrap(priv MechContext, token []byte) ([]byte, bool, error) {
	return token, false, nil
}

func (m *stubMechanism) GetMIC(priv MechContext, msg []byte) ([]byte, error) { return nil, nil }

func (m *stubMechanism) VerifyMIC(priv MechContext, msg []byte, token []byte) error { return nil }

func (m *stubMechanism) AcquireCred(name *Name, usage CredUsage) (MechCred, error) { return nil, nil }

func (m *stubMechanism) InquireCred(priv MechCred) (*CredInfo, error) { return nil, nil }

func (m *stubMechanism) ReleaseCred(priv MechCred) error { return nil }

// withStubMechanism registers m for the duration of the test, restoring
// the prior registry on cleanup.
func withStubMechanism(t *testing.T, m *stubMechanism) {
	t.Helper()
	saved := mechRegistry
	mechRegistry = []Mechanism{m}
	t.Cleanup(func() { mechRegistry = saved })
}

func TestInitSecContextUnknownMechanismIsBadMech(t *testing.T) {
	saved := mechRegistry
	mechRegistry = nil
	defer func() { mechRegistry = saved }()

	target, err := ImportName([]byte("service@host"), OidNTHostbasedService)
	require.NoError(t, err)

	ctx, tok, _, err := InitSecContext(nil, nil, target, OidKerberosV5, 0, nil, nil)
	require.ErrorIs(t, err, ErrBadMech)
	require.Nil(t, ctx)
	require.Nil(t, tok)
}

func TestAcceptSecContextUnknownMechanismIsBadMech(t *testing.T) {
	saved := mechRegistry
	mechRegistry = nil
	defer func() { mechRegistry = saved }()

	tok := EncodeToken(OidKerberosV5, []byte("payload"))
	ctx, outTok, peer, _, err := AcceptSecContext(nil, nil, nil, tok)
	require.ErrorIs(t, err, ErrBadMech)
	require.Nil(t, ctx)
	require.Nil(t, outTok)
	require.Nil(t, peer)
}

func TestAcceptSecContextDefectiveToken(t *testing.T) {
	m := &stubMechanism{oid: OidKerberosV5}
	withStubMechanism(t, m)

	ctx, _, _, _, err := AcceptSecContext(nil, nil, nil, []byte("not a token"))
	require.ErrorIs(t, err, ErrDefectiveToken)
	require.Nil(t, ctx)
}

func TestAcceptSecContextContinuationWrongMechanism(t *testing.T) {
	m := &stubMechanism{oid: OidKerberosV5}
	withStubMechanism(t, m)

	target, err := ImportName([]byte("service@host"), OidNTHostbasedService)
	require.NoError(t, err)
	ctx, _, _, err := InitSecContext(nil, nil, target, OidKerberosV5, 0, nil, nil)
	require.NoError(t, err)

	otherOidTok := EncodeToken(OidNTHostbasedService, []byte("payload"))
	_, _, _, _, err = AcceptSecContext(nil, ctx, nil, otherOidTok)
	require.ErrorIs(t, err, ErrDefectiveToken)
}

func TestInitSecContextHalfBuiltContextIsCleanedUp(t *testing.T) {
	m := &stubMechanism{oid: OidKerberosV5, initErr: ErrBadNameType}
	withStubMechanism(t, m)

	target, err := ImportName([]byte("service@host"), OidNTHostbasedService)
	require.NoError(t, err)

	ctx, tok, _, err := InitSecContext(nil, nil, target, OidKerberosV5, 0, nil, nil)
	require.ErrorIs(t, err, ErrBadNameType)
	require.Nil(t, ctx)
	require.Nil(t, tok)
	require.Equal(t, 1, m.deleteCalls)
}

func TestAcceptSecContextHalfBuiltContextIsCleanedUp(t *testing.T) {
	m := &stubMechanism{oid: OidKerberosV5, acceptErr: ErrDefectiveToken}
	withStubMechanism(t, m)

	tok := EncodeToken(OidKerberosV5, []byte("payload"))
	ctx, outTok, peer, _, err := AcceptSecContext(nil, nil, nil, tok)
	require.ErrorIs(t, err, ErrDefectiveToken)
	require.Nil(t, ctx)
	require.Nil(t, outTok)
	require.Nil(t, peer)
	require.Equal(t, 1, m.deleteCalls)
}

func TestDeleteSecContextIdempotent(t *testing.T) {
	m := &stubMechanism{oid: OidKerberosV5}
	withStubMechanism(t, m)

	require.NoError(t, DeleteSecContext(nil))

	target, err := ImportName([]byte("service@host"), OidNTHostbasedService)
	require.NoError(t, err)
	ctx, _, _, err := InitSecContext(nil, nil, target, OidKerberosV5, 0, nil, nil)
	require.NoError(t, err)
	priv := ctx.priv.(*stubMechContext)

	require.NoError(t, DeleteSecContext(ctx))
	require.Equal(t, 1, m.deleteCalls)
	require.True(t, priv.deleted)
	require.False(t, ctx.IsEstablished())

	// Deleting again is a no-op success and must not call the mechanism
	// a second time (spec.md §8 "delete idempotence").
	require.NoError(t, DeleteSecContext(ctx))
	require.Equal(t, 1, m.deleteCalls)
}
