// SPDX-License-Identifier: Apache-2.0

package krb5

// AcceptorISN controls the acceptor's initial sequence number when no
// mutual authentication round trip communicates one explicitly (spec.md
// §4.6, "sequence-number monotonicity"; supplemented in SPEC_FULL.md §6).
// When mutual authentication is performed, the acceptor's AP-REP always
// carries a freshly chosen sequence number and this policy is not
// consulted; it only matters for the common one-leg case, where the
// acceptor and initiator must agree on a starting value without
// exchanging one.
type AcceptorISNPolicy int

const (
	// AcceptorISNInitiator has the acceptor start its own sending
	// sequence number at the same value the initiator chose, following
	// the teacher's default (most Kerberos GSS-API peers, including
	// MIT krb5, use this convention absent an AP-REP).
	AcceptorISNInitiator AcceptorISNPolicy = iota

	// AcceptorISNZero has the acceptor always start its own sending
	// sequence number at zero.
	AcceptorISNZero
)

// AcceptorISN is the process-wide policy used by every context this
// mechanism establishes without mutual authentication. It is read once
// per AcceptSecContext/InitSecContext call and may be changed between
// contexts, but not concurrently with an in-flight handshake.
var AcceptorISN = AcceptorISNInitiator
