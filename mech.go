// SPDX-License-Identifier: Apache-2.0

package gss

import "time"

// ContextFlag is the set of GSS-API context-establishment flags
// (spec.md §6, context handle "negotiated request flags").
type ContextFlag uint32

const (
	ContextFlagDeleg ContextFlag = 1 << iota
	ContextFlagMutual
	ContextFlagReplay
	ContextFlagSequence
	ContextFlagConf
	ContextFlagInteg
)

// CredUsage describes how an acquired credential may be used.
type CredUsage int

const (
	CredUsageInitiateAndAccept CredUsage = iota
	CredUsageInitiateOnly
	CredUsageAcceptOnly
)

// CredInfo is the information returned by inquire_cred (spec.md §4.7).
type CredInfo struct {
	Name       *Name
	Usage      CredUsage
	ExpiresAt  time.Time
	Mechanisms []Oid
}

// MechContext is mechanism-private per-context state. The generic layer
// never inspects it; it is created and consumed only by the Mechanism
// that produced it (spec.md §3, "Context handle ... mechanism-private
// state").
type MechContext interface{}

// MechCred is mechanism-private per-credential state (spec.md §3,
// "Credential handle ... mechanism-private state").
type MechCred interface{}

// Mechanism is the "record of function pointers" spec.md §4.3 calls for:
// one implementation per registered OID, covering all eleven dispatch
// operations. A Mechanism is stateless across calls -- all per-context
// and per-credential state lives in the MechContext/MechCred values it
// hands back, never in the Mechanism receiver itself, so one Mechanism
// instance can serve arbitrarily many concurrent contexts (§5 Concurrency
// model: "different contexts may be used concurrently").
type Mechanism interface {
	// Oid returns the mechanism's defining object identifier.
	Oid() Oid

	// InitSecContext drives one step of the initiator side of context
	// establishment (spec.md §4.5). priv is nil on the first call for a
	// new context. It returns the (possibly new) private state, the
	// token to send to the peer, the flags actually negotiated, and
	// whether another round is required (via ContinueNeeded(err)).
	InitSecContext(cred MechCred, priv MechContext, targetName *Name, reqFlags ContextFlag, bindings []byte, inputToken []byte) (newPriv MechContext, outputToken []byte, retFlags ContextFlag, err error)

	// AcceptSecContext drives one step of the acceptor side (spec.md
	// §4.5). priv is nil on the first call.
	AcceptSecContext(cred MechCred, priv MechContext, bindings []byte, inputToken []byte) (newPriv MechContext, outputToken []byte, srcName *Name, retFlags ContextFlag, err error)

	// DeleteSecContext releases mechanism-private context state.
	DeleteSecContext(priv MechContext) error

	// ContextTime returns the time remaining before the context expires.
	ContextTime(priv MechContext) (time.Duration, error)

	// Wrap and Unwrap implement per-message confidentiality/integrity
	// (spec.md §4.6).
	Wrap(priv MechContext, msg []byte, confReq bool) (token []byte, confState bool, err error)
	Unwrap(priv MechContext, token []byte) (msg []byte, confState bool, err error)

	// GetMIC and VerifyMIC implement detached signatures.
	GetMIC(priv MechContext, msg []byte) (token []byte, err error)
	VerifyMIC(priv MechContext, msg []byte, token []byte) error

	// AcquireCred, InquireCred and ReleaseCred implement credential
	// management (spec.md §4.7).
	AcquireCred(name *Name, usage CredUsage) (MechCred, error)
	InquireCred(priv MechCred) (*CredInfo, error)
	ReleaseCred(priv MechCred) error
}

// mechRegistry is the process-wide, build-time-populated array of
// registered mechanisms (spec.md §4.3). It is written only from package
// init() functions (registration happens before any goroutine could be
// reading it) and is read-only thereafter, so no further synchronization
// is needed.
var mechRegistry []Mechanism

// RegisterMechanism adds a mechanism implementation to the process-wide
// registry. It must be called from a mechanism package's init() function,
// mirroring the teacher's gssapi.Register -- the registry is closed to
// runtime plugins (spec.md §9): there is no way to unregister or replace
// an entry.
func RegisterMechanism(m Mechanism) {
	mechRegistry = append(mechRegistry, m)
}

// findMechanism implements find_mechanism from spec.md §4.3: an exact
// OID match, or (oid == nil) the first registered mechanism as the
// implementation-defined default.
func findMechanism(oid Oid) Mechanism {
	if oid == nil {
		if len(mechRegistry) == 0 {
			return nil
		}
		return mechRegistry[0]
	}
	return findMechanismNoDefault(oid)
}

// findMechanismNoDefault implements find_mechanism_no_default: an exact
// match only, oid == nil never matches.
func findMechanismNoDefault(oid Oid) Mechanism {
	if oid == nil {
		return nil
	}
	for _, m := range mechRegistry {
		if m.Oid().Equal(oid) {
			return m
		}
	}
	return nil
}

// RegisteredMechanisms returns the OIDs of every registered mechanism,
// for use with gss_indicate_mechs-style enumeration.
func RegisteredMechanisms() *OidSet {
	s := CreateEmptyOidSet()
	for _, m := range mechRegistry {
		_ = s.AddMember(m.Oid())
	}
	return s
}
