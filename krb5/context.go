// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	gss "github.com/golang-auth/gss-core"
	"github.com/golang-auth/gss-core/internal/krb5cap"
)

// clockSkew bounds how far apart the initiator's and acceptor's clocks
// may be, following the teacher's fixed skew tolerance.
const clockSkew = 5 * time.Minute

// mechContext is the Kerberos V5 mechanism's private per-context state
// (spec.md §3 "Context handle ... mechanism-private state"). RFC 1964
// has no subkey negotiation, so unlike the teacher's RFC 4121-based
// Krb5Mech there is no subkey field here: the session key from the
// ticket is used for every wrap/unwrap/sign/verify call over the life
// of the context.
type mechContext struct {
	cap    krb5cap.Capability
	binder capBinding

	isInitiator      bool
	waitingForMutual bool

	ticket      krb5cap.Ticket
	clientCTime time.Time
	clientCusec int

	ourSeq   uint64
	theirSeq uint64

	flags gss.ContextFlag
}

// buildGSSChecksum constructs the 24-byte RFC 1964 §1.1.1 "GSS" checksum
// (tag 0x8003): a 4-byte LE channel-binding length fixed at 16, 16 bytes
// of channel-binding hash (all zero, since this mechanism rejects
// channel bindings outright rather than hashing them, see
// DESIGN.md), and the 4-byte LE context flags.
func buildGSSChecksum(flags gss.ContextFlag) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:4], 16)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(flags))
	return buf
}

// parseGSSChecksum extracts the context flags from a peer's GSS
// checksum, rejecting anything that isn't the fixed 24-byte, 16-byte
// no-bindings layout this mechanism produces.
func parseGSSChecksum(buf []byte) (gss.ContextFlag, error) {
	if len(buf) != 24 {
		return 0, gss.ErrDefectiveToken
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != 16 {
		return 0, gss.ErrDefectiveToken
	}
	return gss.ContextFlag(binary.LittleEndian.Uint32(buf[20:24])), nil
}

func (m *mechanism) InitSecContext(cred gss.MechCred, priv gss.MechContext, targetName *gss.Name, reqFlags gss.ContextFlag, bindings []byte, inputToken []byte) (gss.MechContext, []byte, gss.ContextFlag, error) {
	if bindings != nil {
		return nil, nil, 0, gss.ErrBadBindings
	}

	if priv == nil {
		return m.initFirst(cred, targetName, reqFlags)
	}

	mc, ok := priv.(*mechContext)
	if !ok || mc == nil || !mc.isInitiator || !mc.waitingForMutual {
		return nil, nil, 0, fmt.Errorf("krb5: %w", gss.ErrNoContext)
	}
	return m.initContinue(mc, inputToken)
}

func (m *mechanism) initFirst(cred gss.MechCred, targetName *gss.Name, reqFlags gss.ContextFlag) (gss.MechContext, []byte, gss.ContextFlag, error) {
	if targetName == nil {
		return nil, nil, 0, fmt.Errorf("krb5: %w", gss.ErrBadNameType)
	}
	cs, _ := cred.(*credState)

	// Canonicalize a hostbased-service name "service@host" into the
	// Kerberos principal "service/host"; other names are used as given.
	service := targetName.String()
	if targetName.NameType.Equal(gss.OidNTHostbasedService) {
		service = strings.Replace(service, "@", "/", 1)
	}

	var ticket krb5cap.Ticket
	var err error
	if cs != nil && cs.principal != "" {
		ticket, err = m.cap.AcquireTicketWithPrincipal(cs.principal, cs.keytabPath, cs.krbConfPath, service)
	} else {
		ticket, err = m.cap.AcquireTicket(service)
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("krb5: acquiring ticket: %w: %v", gss.ErrNoCred, err)
	}

	mutual := reqFlags&gss.ContextFlagMutual != 0
	gssCksum := buildGSSChecksum(reqFlags)
	apReq, seqNumber, cTime, cUsec, err := m.cap.BuildAPReq(ticket, gssCksum, mutual)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("krb5: building AP-REQ: %w", gss.ErrFailure)
	}
	outputToken := encodeContextToken(tokIDAPReq, apReq)

	mc := &mechContext{
		cap:         m.cap,
		binder:      capBinding{c: m.cap},
		isInitiator: true,
		ticket:      ticket,
		clientCTime: cTime,
		clientCusec: cUsec,
		ourSeq:      uint64(seqNumber),
		flags:       reqFlags,
	}

	if mutual {
		mc.waitingForMutual = true
		return mc, outputToken, reqFlags, gss.InfoContinueNeeded
	}

	switch AcceptorISN {
	case AcceptorISNZero:
		mc.theirSeq = 0
	default:
		mc.theirSeq = uint64(seqNumber)
	}
	return mc, outputToken, reqFlags, nil
}

func (m *mechanism) initContinue(mc *mechContext, inputToken []byte) (gss.MechContext, []byte, gss.ContextFlag, error) {
	tokID, payload, err := decodeContextToken(inputToken)
	if err != nil {
		return nil, nil, 0, err
	}
	if tokID != tokIDAPRep {
		return nil, nil, 0, fmt.Errorf("krb5: %w", gss.ErrDefectiveToken)
	}

	cTime, cUsec, seqNumber, err := m.cap.ParseAPRep(mc.ticket, payload)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("krb5: parsing AP-REP: %w", gss.ErrDefectiveToken)
	}
	if !cTime.Equal(mc.clientCTime) || cUsec != mc.clientCusec {
		return nil, nil, 0, fmt.Errorf("krb5: AP-REP does not reflect our authenticator: %w", gss.ErrDefectiveToken)
	}

	mc.theirSeq = uint64(seqNumber)
	mc.waitingForMutual = false
	return mc, nil, mc.flags, nil
}

func (m *mechanism) AcceptSecContext(cred gss.MechCred, priv gss.MechContext, bindings []byte, inputToken []byte) (gss.MechContext, []byte, *gss.Name, gss.ContextFlag, error) {
	if bindings != nil {
		return nil, nil, nil, 0, gss.ErrBadBindings
	}

	if priv != nil {
		// RFC 1964 context establishment never needs more than one
		// token from the acceptor; a continuation call means the peer
		// is confused about the handshake state.
		return nil, nil, nil, 0, fmt.Errorf("krb5: %w", gss.ErrNoContext)
	}

	tokID, payload, err := decodeContextToken(inputToken)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	if tokID != tokIDAPReq {
		return nil, nil, nil, 0, fmt.Errorf("krb5: %w", gss.ErrDefectiveToken)
	}

	cs, _ := cred.(*credState)
	var ktFile string
	if cs != nil {
		ktFile = cs.acceptorKeytabPath
	}

	ticket, auth, err := m.cap.ParseAPReq(ktFile, payload, clockSkew)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("krb5: %w: %v", gss.ErrDefectiveToken, err)
	}

	flags, err := parseGSSChecksum(auth.GSSChecksum)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	peerName, err := gss.ImportName([]byte(auth.ClientName+"@"+auth.ClientRealm), gss.OidKerberosV5PrincipalName)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	mc := &mechContext{
		cap:         m.cap,
		binder:      capBinding{c: m.cap},
		isInitiator: false,
		ticket:      ticket,
		theirSeq:    uint64(auth.SeqNumber),
		flags:       flags,
	}
	switch AcceptorISN {
	case AcceptorISNZero:
		mc.ourSeq = 0
	default:
		mc.ourSeq = uint64(auth.SeqNumber)
	}

	var outputToken []byte
	if auth.MutualRequired {
		apRep, seqNumber, err := m.cap.BuildAPRep(ticket, auth.CTime, auth.Cusec)
		if err != nil {
			return nil, nil, nil, 0, fmt.Errorf("krb5: building AP-REP: %w", gss.ErrFailure)
		}
		mc.ourSeq = uint64(seqNumber)
		outputToken = encodeContextToken(tokIDAPRep, apRep)
	}

	return mc, outputToken, peerName, flags, nil
}

func (m *mechanism) DeleteSecContext(priv gss.MechContext) error {
	return nil
}

func (m *mechanism) ContextTime(priv gss.MechContext) (time.Duration, error) {
	if _, ok := priv.(*mechContext); !ok {
		return 0, fmt.Errorf("krb5: %w", gss.ErrNoContext)
	}
	// Ticket expiry is not tracked by krb5cap.Ticket (see DESIGN.md);
	// remaining validity cannot be reported.
	return 0, fmt.Errorf("krb5: %w", gss.ErrUnavailable)
}

func (m *mechanism) sessionKey(priv gss.MechContext) (*mechContext, krb5cap.Key, error) {
	mc, ok := priv.(*mechContext)
	if !ok || mc == nil || mc.waitingForMutual {
		return nil, krb5cap.Key{}, fmt.Errorf("krb5: %w", gss.ErrNoContext)
	}
	return mc, mc.ticket.SessionKey, nil
}

func (m *mechanism) Wrap(priv gss.MechContext, msg []byte, confReq bool) ([]byte, bool, error) {
	mc, key, err := m.sessionKey(priv)
	if err != nil {
		return nil, false, err
	}
	tok, err := mc.binder.seal(key, mc.isInitiator, mc.ourSeq, msg)
	if err != nil {
		return nil, false, err
	}
	mc.ourSeq++
	// Sealing is never actually applied (see DESIGN.md): conf_state
	// is always false regardless of confReq, since honesty about what
	// protection was actually provided matters more than satisfying the
	// caller's request.
	_ = confReq
	return tok, false, nil
}

func (m *mechanism) Unwrap(priv gss.MechContext, token []byte) ([]byte, bool, error) {
	mc, key, err := m.sessionKey(priv)
	if err != nil {
		return nil, false, err
	}
	msg, confState, err := mc.binder.unseal(key, mc.isInitiator, mc.theirSeq, token)
	if err != nil {
		return nil, false, err
	}
	mc.theirSeq++
	return msg, confState, nil
}

func (m *mechanism) GetMIC(priv gss.MechContext, msg []byte) ([]byte, error) {
	mc, key, err := m.sessionKey(priv)
	if err != nil {
		return nil, err
	}
	return mc.binder.sign(key, msg)
}

func (m *mechanism) VerifyMIC(priv gss.MechContext, msg []byte, token []byte) error {
	mc, key, err := m.sessionKey(priv)
	if err != nil {
		return err
	}
	return mc.binder.verify(key, msg, token)
}
