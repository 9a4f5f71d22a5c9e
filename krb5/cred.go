// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"time"

	gss "github.com/golang-auth/gss-core"
)

// credState is the mechanism-private credential state (spec.md §4.7,
// supplemented in SPEC_FULL.md §5.7 with the keytab+principal path).
// Ticket acquisition itself is deferred to InitSecContext, which knows
// the target service name; AcquireCred only records which
// identity source to use, mirroring the split between the teacher's
// Initiate (default ccache) and InitiateByPrincipalAndPath (explicit
// keytab) entry points.
type credState struct {
	usage gss.CredUsage
	name  *gss.Name

	// Initiator-only: when principal is non-empty, tickets are acquired
	// via AcquireTicketWithPrincipal instead of the default ccache.
	principal   string
	keytabPath  string
	krbConfPath string

	// Acceptor-only: the keytab used to verify incoming AP-REQs, empty
	// meaning "use KRB5_KTNAME/the default path".
	acceptorKeytabPath string
}

func (m *mechanism) AcquireCred(name *gss.Name, usage gss.CredUsage) (gss.MechCred, error) {
	return &credState{usage: usage, name: name}, nil
}

func (m *mechanism) InquireCred(priv gss.MechCred) (*gss.CredInfo, error) {
	cs, ok := priv.(*credState)
	if !ok || cs == nil {
		return nil, gss.ErrNoCred
	}
	return &gss.CredInfo{
		Name:       cs.name,
		Usage:      cs.usage,
		ExpiresAt:  time.Time{}, // unavailable: acquisition is deferred, see credState doc
		Mechanisms: []gss.Oid{gss.OidKerberosV5},
	}, nil
}

func (m *mechanism) ReleaseCred(priv gss.MechCred) error {
	return nil
}

// WithPrincipal configures cred (as returned by gss.AcquireCred for the
// Kerberos V5 mechanism) to authenticate as principal from keytabPath
// instead of the default credentials cache, following the teacher's
// InitiateByPrincipalAndPath. krbConfPath may be empty to use the default
// krb5.conf search path.
func WithPrincipal(cred *gss.Credential, principal, keytabPath, krbConfPath string) error {
	cs, ok := cred.MechCred().(*credState)
	if !ok {
		return gss.ErrNoCred
	}
	cs.principal = principal
	cs.keytabPath = keytabPath
	cs.krbConfPath = krbConfPath
	return nil
}

// WithAcceptorKeytab configures cred to verify incoming AP-REQs using an
// explicit keytab path instead of KRB5_KTNAME/the default path.
func WithAcceptorKeytab(cred *gss.Credential, keytabPath string) error {
	cs, ok := cred.MechCred().(*credState)
	if !ok {
		return gss.ErrNoCred
	}
	cs.acceptorKeytabPath = keytabPath
	return nil
}
