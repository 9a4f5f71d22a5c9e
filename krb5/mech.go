// SPDX-License-Identifier: Apache-2.0

// Package krb5 implements the Kerberos V5 GSS-API mechanism defined by
// RFC 1964: context establishment over AP-REQ/AP-REP, and the legacy
// (pre-RFC 4121) wrap/MIC per-message token formats. Importing the
// package for its side effect registers it with the generic gss core:
//
//	import _ "github.com/golang-auth/gss-core/krb5"
package krb5

import (
	gss "github.com/golang-auth/gss-core"
	"github.com/golang-auth/gss-core/internal/krb5cap"
)

// mechanism is the Kerberos V5 Mechanism implementation. It carries no
// state of its own -- every context and credential's state lives in the
// mechContext/credState values handed back to the generic layer, so one
// mechanism value (registered once, at init time) serves every context
// (gss.Mechanism's concurrency contract).
type mechanism struct {
	cap krb5cap.Capability
}

var _ gss.Mechanism = (*mechanism)(nil)

func init() {
	gss.RegisterMechanism(&mechanism{cap: krb5cap.Gokrb5Capability{}})
}

func (m *mechanism) Oid() gss.Oid {
	return gss.OidKerberosV5
}
