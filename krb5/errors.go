// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"fmt"

	gss "github.com/golang-auth/gss-core"
)

var errUnsupportedEnctype = fmt.Errorf("krb5: session key enctype has no RFC 1964 per-message cipher suite: %w", gss.ErrFailure)
