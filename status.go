// SPDX-License-Identifier: Apache-2.0

/*
Package gss provides a generic GSS-API dispatch core: a mechanism
registry, the token encapsulation codec shared by every mechanism, and
a thin routing layer (InitSecContext, AcceptSecContext, Wrap, Unwrap,
...) that forwards to whichever mechanism a context or a credential
names.

The only mechanism shipped here is Kerberos V5, in the sibling krb5
package. Importing krb5 for its init() side effect registers it:

	import (
		_ "github.com/golang-auth/gss-core/krb5"
		"github.com/golang-auth/gss-core"
	)

Status is reported with plain Go errors rather than the major/minor
OM_uint32 pair of RFC 2743: a FatalStatus wraps the RFC 2743 fatal
error code plus an embedded InfoStatus for supplementary bits such as
CONTINUE_NEEDED, and mechanism-private failures are carried in its
MechErrors field in place of a minor status integer.
*/
package gss

import (
	"errors"
	"strings"
)

// FatalErrorCode mirrors the GSS-API major status routing/calling-error
// codes named in spec.md §6, minus the two bits (CALL_INACCESSIBLE_READ,
// CALL_BAD_STRUCTURE) that are reported as a distinct CallError instead.
type FatalErrorCode uint32

// InformationCode mirrors the GSS-API supplementary status bits.
type InformationCode uint32

const (
	complete FatalErrorCode = iota
	errBadMech
	errBadNameType
	errBadBindings
	errBadMic
	errNoCred
	errNoContext
	errDefectiveToken
	errCredentialsExpired
	errContextExpired
	errFailure
	errUnavailable
	errDuplicateElement

	errBadSig = errBadMic
)

const (
	infoContinueNeeded InformationCode = 1 << iota
)

// Fatal status sentinels, see spec.md §6 and §7.
var (
	ErrBadMech             = errors.New("gss: an unsupported mechanism was requested")
	ErrBadNameType         = errors.New("gss: a supplied name was of an unsupported type")
	ErrBadBindings         = errors.New("gss: incorrect channel bindings were supplied")
	ErrBadMic              = errors.New("gss: a token had an invalid checksum or sequence number")
	ErrBadSig              = ErrBadMic
	ErrNoCred              = errors.New("gss: no credential was supplied, or it is unavailable")
	ErrNoContext           = errors.New("gss: no context has been established")
	ErrDefectiveToken      = errors.New("gss: the token was malformed")
	ErrCredentialsExpired  = errors.New("gss: the referenced credential has expired")
	ErrContextExpired      = errors.New("gss: the context has expired")
	ErrFailure             = errors.New("gss: unspecified failure, see the mechanism error for detail")
	ErrUnavailable         = errors.New("gss: the operation or option is not supported by this core")
	ErrDuplicateElement    = errors.New("gss: the requested element already exists")
	ErrCallInaccessibleRd  = errors.New("gss: a required argument was inaccessible")
	ErrCallBadStructure    = errors.New("gss: a required output argument was the null sentinel")
)

//nolint:staticcheck // these aren't actually errors, they're carried through Unwrap()
var InfoContinueNeeded = errors.New("gss: the caller must call again to complete the operation")

// FatalStatus is returned by the generic surface for the failures it
// detects itself (routing, argument and envelope errors); errors returned
// by a mechanism are passed through unchanged. It embeds an InfoStatus so that a caller interested only in
// CONTINUE_NEEDED can still errors.Is() against InfoContinueNeeded even
// when the call otherwise failed (per RFC 2743, fatal and informational
// bits are orthogonal).
type FatalStatus struct {
	InfoStatus
	FatalErrorCode FatalErrorCode
	// CallError carries the two calling-error bits from spec.md §4.4
	// (CALL_INACCESSIBLE_READ, CALL_BAD_STRUCTURE) as distinct from the
	// routine error encoded by FatalErrorCode.
	CallError error
}

// InfoStatus carries the supplementary status bits and mechanism-private
// errors (the "minor status") for an otherwise-successful call.
type InfoStatus struct {
	InformationCode InformationCode
	MechErrors      []error
}

func (s FatalStatus) Fatal() error {
	switch s.FatalErrorCode {
	case complete:
		return nil
	case errBadMech:
		return ErrBadMech
	case errBadNameType:
		return ErrBadNameType
	case errBadBindings:
		return ErrBadBindings
	case errBadMic:
		return ErrBadMic
	case errNoCred:
		return ErrNoCred
	case errNoContext:
		return ErrNoContext
	case errDefectiveToken:
		return ErrDefectiveToken
	case errCredentialsExpired:
		return ErrCredentialsExpired
	case errContextExpired:
		return ErrContextExpired
	case errUnavailable:
		return ErrUnavailable
	case errDuplicateElement:
		return ErrDuplicateElement
	default:
		return ErrFailure
	}
}

func (s InfoStatus) Unwrap() []error {
	var ret []error
	if s.InformationCode&infoContinueNeeded > 0 {
		ret = append(ret, InfoContinueNeeded)
	}
	return ret
}

func (s InfoStatus) Error() string {
	errs := s.Unwrap()
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (s FatalStatus) Unwrap() []error {
	var ret []error
	if s.CallError != nil {
		ret = append(ret, s.CallError)
	}
	if s.FatalErrorCode != complete {
		ret = append(ret, s.Fatal())
	}
	ret = append(ret, s.InfoStatus.Unwrap()...)
	ret = append(ret, s.MechErrors...)
	return ret
}

func (s FatalStatus) Error() string {
	var parts []string

	if s.CallError != nil {
		parts = append(parts, s.CallError.Error())
	}
	if s.FatalErrorCode != complete {
		parts = append(parts, s.Fatal().Error())
	}
	if len(s.MechErrors) > 0 {
		mechStrs := make([]string, len(s.MechErrors))
		for i, e := range s.MechErrors {
			mechStrs[i] = e.Error()
		}
		parts = append(parts, strings.Join(mechStrs, "; "))
	}
	if info := s.InfoStatus.Error(); info != "" {
		parts = append(parts, "additionally: "+info)
	}

	return strings.Join(parts, ".  ")
}

// continueNeeded builds the FatalStatus returned for GSS_S_CONTINUE_NEEDED,
// which is not an error in the Go sense (callers are expected to check
// ContinueNeeded()) but is still returned as the status value so that
// errors.Is(err, InfoContinueNeeded) works uniformly.
func continueNeeded() error {
	return FatalStatus{InfoStatus: InfoStatus{InformationCode: infoContinueNeeded}}
}

// newFatal wraps a routine error code plus optional mechanism errors.
func newFatal(code FatalErrorCode, mechErrs ...error) error {
	return FatalStatus{FatalErrorCode: code, InfoStatus: InfoStatus{MechErrors: mechErrs}}
}

func callError(err error) error {
	return FatalStatus{FatalErrorCode: complete, CallError: err}
}

// ContinueNeeded reports whether err is (or wraps) the CONTINUE_NEEDED
// informational status, the idiomatic replacement for comparing an
// OM_uint32 major status against GSS_S_CONTINUE_NEEDED.
func ContinueNeeded(err error) bool {
	return errors.Is(err, InfoContinueNeeded)
}
