// SPDX-License-Identifier: Apache-2.0

package krb5cap

import (
	"fmt"
	"os"
	"strings"
)

// krbConfFile, krbCCFile and krbKtFile read the same environment
// variables MIT and Heimdal Kerberos honor, following the teacher
// mechanism's krbConfFile/krbCCFile/krbKtFile helpers.
func krbConfFile() string {
	if v, ok := os.LookupEnv("KRB5_CONFIG"); ok {
		return v
	}
	return "/etc/krb5.conf"
}

func krbCCFile() string {
	v, ok := os.LookupEnv("KRB5CCNAME")
	if !ok {
		v = fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
	}
	return strings.TrimPrefix(v, "FILE:")
}

func krbKtFile() string {
	v, ok := os.LookupEnv("KRB5_KTNAME")
	if !ok {
		v = fmt.Sprintf("/var/kerberos/krb5/user/%d/client.keytab", os.Getuid())
	}
	return strings.TrimPrefix(v, "FILE:")
}
