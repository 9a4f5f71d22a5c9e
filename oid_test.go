// SPDX-License-Identifier: Apache-2.0

package gss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOidEqual(t *testing.T) {
	a := Oid{0x2a, 0x86, 0x48}
	b := Oid{0x2a, 0x86, 0x48}
	c := Oid{0x2a, 0x86, 0x49}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(Oid{0x2a, 0x86}))
	require.True(t, Oid(nil).Equal(Oid{}))
}

func TestOidSetAddMemberIdempotent(t *testing.T) {
	s := CreateEmptyOidSet()
	require.Equal(t, 0, s.Len())

	require.NoError(t, s.AddMember(OidKerberosV5))
	require.Equal(t, 1, s.Len())

	// Adding the same OID again is a no-op success (spec.md §8
	// "OID-set idempotence"), not a duplicate member.
	require.NoError(t, s.AddMember(OidKerberosV5))
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.AddMember(OidNTHostbasedService))
	require.Equal(t, 2, s.Len())
}

func TestOidSetTestMember(t *testing.T) {
	s := CreateEmptyOidSet()
	require.False(t, s.TestMember(OidKerberosV5))

	require.NoError(t, s.AddMember(OidKerberosV5))
	require.True(t, s.TestMember(OidKerberosV5))
	require.False(t, s.TestMember(OidNTUserName))
}

func TestOidSetMembersAndRelease(t *testing.T) {
	s := CreateEmptyOidSet()
	require.NoError(t, s.AddMember(OidKerberosV5))
	require.NoError(t, s.AddMember(OidNTStringUID))
	require.Len(t, s.Members(), 2)

	s.Release()
	require.Equal(t, 0, s.Len())
	require.Empty(t, s.Members())
}

func TestRegisteredMechanisms(t *testing.T) {
	saved := mechRegistry
	defer func() { mechRegistry = saved }()

	mechRegistry = nil
	require.Equal(t, 0, RegisteredMechanisms().Len())

	mechRegistry = []Mechanism{&stubMechanism{oid: OidKerberosV5}}
	set := RegisteredMechanisms()
	require.Equal(t, 1, set.Len())
	require.True(t, set.TestMember(OidKerberosV5))
}
