// SPDX-License-Identifier: Apache-2.0

package gss

// Credential is a handle to an acquired set of credentials for one
// mechanism (spec.md §3 "Credential handle"). The zero value (nil
// *Credential) is the "no credential" sentinel accepted throughout the
// generic surface wherever a credential argument is optional.
type Credential struct {
	mech Mechanism
	priv MechCred
}

// AcquireCred implements acquire_cred (spec.md §4.7). A nil desiredName
// requests the default identity. A nil desiredMech requests the default
// mechanism (find_mechanism(nil)).
func AcquireCred(desiredName *Name, desiredMech Oid, usage CredUsage) (*Credential, error) {
	m := findMechanism(desiredMech)
	if m == nil {
		return nil, newFatal(errBadMech)
	}

	priv, err := m.AcquireCred(desiredName, usage)
	if err != nil {
		return nil, err
	}

	return &Credential{mech: m, priv: priv}, nil
}

// InquireCred implements inquire_cred. A nil receiver inquires about the
// default credentials, which this core does not track implicitly, so it
// fails with NO_CRED.
func (c *Credential) InquireCred() (*CredInfo, error) {
	if c == nil {
		return nil, newFatal(errNoCred)
	}
	return c.mech.InquireCred(c.priv)
}

// MechCred exposes the mechanism-private credential state underneath c,
// for mechanism packages that need to offer credential-configuration
// helpers beyond the generic AcquireCred surface (eg. krb5.WithPrincipal).
// The generic layer itself never calls this.
func (c *Credential) MechCred() MechCred {
	if c == nil {
		return nil
	}
	return c.priv
}

// ReleaseCred implements release_cred (spec.md §4.7). Releasing a nil
// credential, or one already released, is a no-op success -- callers are
// not required to track whether they already released a handle.
func (c *Credential) ReleaseCred() error {
	if c == nil || c.priv == nil {
		return nil
	}
	err := c.mech.ReleaseCred(c.priv)
	c.priv = nil
	c.mech = nil
	return err
}
