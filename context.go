// SPDX-License-Identifier: Apache-2.0

package gss

import "time"

// Context is a handle to a (possibly still-establishing) security
// context for one mechanism (spec.md §3 "Context handle"). A nil
// *Context is the GSS_C_NO_CONTEXT sentinel.
//
// InitSecContext and AcceptSecContext return the context to use on the
// next call as their first result; callers must reassign their handle
// variable to that result on every call, including failing ones -- on
// failure the returned handle is always nil, standing in for the C API's
// "handle set to GSS_C_NO_CONTEXT and any half-built state released"
// contract (spec.md §4.4, §8 "half-built context cleanup").
type Context struct {
	mech        Mechanism
	priv        MechContext
	established bool
	peerName    *Name
	flags       ContextFlag
}

// IsEstablished reports whether the context has completed the
// handshake and is ready for Wrap/Unwrap/GetMIC/VerifyMIC.
func (c *Context) IsEstablished() bool {
	return c != nil && c.established
}

// PeerName returns the authenticated identity of the context initiator,
// as determined by the acceptor. It is nil on the initiator side.
func (c *Context) PeerName() *Name {
	if c == nil {
		return nil
	}
	return c.peerName
}

// Flags returns the context flags negotiated so far.
func (c *Context) Flags() ContextFlag {
	if c == nil {
		return 0
	}
	return c.flags
}

// InitSecContext implements init_sec_context (spec.md §4.4). ctx is the
// handle returned by a prior call for this context, or nil on the first
// call. mechOid selects the mechanism on the first call only, via
// find_mechanism; it is ignored on continuation calls, which always use
// the mechanism already bound to ctx.
func InitSecContext(cred *Credential, ctx *Context, targetName *Name, mechOid Oid, reqFlags ContextFlag, bindings []byte, inputToken []byte) (newCtx *Context, outputToken []byte, retFlags ContextFlag, err error) {
	firstCall := ctx == nil

	var m Mechanism
	var priv MechContext
	if firstCall {
		if targetName == nil {
			return nil, nil, 0, callError(ErrCallInaccessibleRd)
		}
		m = findMechanism(mechOid)
		if m == nil {
			return nil, nil, 0, newFatal(errBadMech)
		}
	} else {
		m = ctx.mech
		priv = ctx.priv
	}

	var credPriv MechCred
	if cred != nil {
		if cred.mech != m {
			return nil, nil, 0, newFatal(errNoCred)
		}
		credPriv = cred.priv
	}

	newPriv, tokOut, flags, ierr := m.InitSecContext(credPriv, priv, targetName, reqFlags, bindings, inputToken)
	if ierr != nil && !ContinueNeeded(ierr) {
		if newPriv != nil {
			_ = m.DeleteSecContext(newPriv)
		}
		return nil, nil, 0, ierr
	}

	nc := &Context{
		mech:        m,
		priv:        newPriv,
		established: !ContinueNeeded(ierr),
		flags:       flags,
	}
	return nc, tokOut, flags, ierr
}

// AcceptSecContext implements accept_sec_context (spec.md §4.4). A nil
// cred requests the default accepting identity. bindings carries the
// caller's channel bindings, if any; like InitSecContext, the generic
// layer passes them through to the mechanism unexamined -- whether a
// non-nil value is acceptable is mechanism-defined (spec.md §4.5).
func AcceptSecContext(cred *Credential, ctx *Context, bindings []byte, inputToken []byte) (newCtx *Context, outputToken []byte, srcName *Name, retFlags ContextFlag, err error) {
	firstCall := ctx == nil

	mechOid, _, derr := DecodeToken(inputToken)
	if derr != nil {
		return nil, nil, nil, 0, derr
	}

	var m Mechanism
	var priv MechContext
	if firstCall {
		m = findMechanismNoDefault(mechOid)
		if m == nil {
			return nil, nil, nil, 0, newFatal(errBadMech)
		}
	} else {
		if !ctx.mech.Oid().Equal(mechOid) {
			return nil, nil, nil, 0, newFatal(errDefectiveToken)
		}
		m = ctx.mech
		priv = ctx.priv
	}

	var credPriv MechCred
	if cred != nil {
		if cred.mech != m {
			return nil, nil, nil, 0, newFatal(errNoCred)
		}
		credPriv = cred.priv
	}

	newPriv, tokOut, peer, flags, aerr := m.AcceptSecContext(credPriv, priv, bindings, inputToken)
	if aerr != nil && !ContinueNeeded(aerr) {
		if newPriv != nil {
			_ = m.DeleteSecContext(newPriv)
		}
		return nil, nil, nil, 0, aerr
	}

	nc := &Context{
		mech:        m,
		priv:        newPriv,
		established: !ContinueNeeded(aerr),
		peerName:    peer,
		flags:       flags,
	}
	return nc, tokOut, peer, flags, aerr
}

// DeleteSecContext implements delete_sec_context. Deleting a nil context
// is a no-op success (spec.md §8, "delete idempotence").
func DeleteSecContext(ctx *Context) error {
	if ctx == nil || ctx.priv == nil {
		return nil
	}
	err := ctx.mech.DeleteSecContext(ctx.priv)
	ctx.priv = nil
	ctx.established = false
	return err
}

// ContextTime implements context_time.
func ContextTime(ctx *Context) (time.Duration, error) {
	if ctx == nil {
		return 0, newFatal(errNoContext)
	}
	return ctx.mech.ContextTime(ctx.priv)
}

// Wrap implements the wrap per-message token (spec.md §4.6).
func Wrap(ctx *Context, msg []byte, confReq bool) ([]byte, bool, error) {
	if !ctx.IsEstablished() {
		return nil, false, newFatal(errNoContext)
	}
	return ctx.mech.Wrap(ctx.priv, msg, confReq)
}

// Unwrap implements the unwrap per-message token.
func Unwrap(ctx *Context, token []byte) ([]byte, bool, error) {
	if !ctx.IsEstablished() {
		return nil, false, newFatal(errNoContext)
	}
	return ctx.mech.Unwrap(ctx.priv, token)
}

// GetMIC implements get_mic.
func GetMIC(ctx *Context, msg []byte) ([]byte, error) {
	if !ctx.IsEstablished() {
		return nil, newFatal(errNoContext)
	}
	return ctx.mech.GetMIC(ctx.priv, msg)
}

// VerifyMIC implements verify_mic.
func VerifyMIC(ctx *Context, msg []byte, token []byte) error {
	if !ctx.IsEstablished() {
		return newFatal(errNoContext)
	}
	return ctx.mech.VerifyMIC(ctx.priv, msg, token)
}

// WrapSizeLimit, ProcessContextToken, InquireContext, ExportSecContext
// and ImportSecContext are named by spec.md §6 but out of scope for this
// core (spec.md §9 Open Questions): each is a legitimate GSS-API call
// that simply reports UNAVAILABLE rather than being silently absent.

// WrapSizeLimit implements wrap_size_limit.
func WrapSizeLimit(ctx *Context, confReq bool, reqOutputSize uint) (uint, error) {
	return 0, newFatal(errUnavailable)
}

// ProcessContextToken implements process_context_token.
func ProcessContextToken(ctx *Context, token []byte) error {
	return newFatal(errUnavailable)
}

// InquireContext implements inquire_context.
func InquireContext(ctx *Context) error {
	return newFatal(errUnavailable)
}

// ExportSecContext implements export_sec_context.
func ExportSecContext(ctx *Context) ([]byte, error) {
	return nil, newFatal(errUnavailable)
}

// ImportSecContext implements import_sec_context.
func ImportSecContext(buf []byte) (*Context, error) {
	return nil, newFatal(errUnavailable)
}
