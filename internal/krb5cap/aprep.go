// SPDX-License-Identifier: Apache-2.0

package krb5cap

/*
 * gokrb5/v8's messages package can parse a KRB_AP_REP but cannot build or
 * marshal one: the library is written for clients, which consume but never
 * produce that message. A GSS-API acceptor needs to send one for mutual
 * authentication, so the type and its (de)serialization are reimplemented
 * here, following the layout of github.com/jcmturner/gokrb5/v8/messages/APRep.go
 * (RFC 4120 §5.5.2) the same way the teacher mechanism's krb5/APRep.go does.
 */

import (
	"fmt"
	"time"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/asn1tools"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana"
	"github.com/jcmturner/gokrb5/v8/iana/asnAppTag"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/iana/msgtype"
	"github.com/jcmturner/gokrb5/v8/types"
)

type aPRep struct {
	PVNO    int                 `asn1:"explicit,tag:0"`
	MsgType int                 `asn1:"explicit,tag:1"`
	EncPart types.EncryptedData `asn1:"explicit,tag:2"`
}

type encAPRepPart struct {
	CTime          time.Time           `asn1:"generalized,explicit,tag:0"`
	Cusec          int                 `asn1:"explicit,tag:1"`
	Subkey         types.EncryptionKey `asn1:"optional,explicit,tag:2"`
	SequenceNumber int64               `asn1:"optional,explicit,tag:3"`
}

func (a *aPRep) unmarshal(b []byte) error {
	_, err := asn1.UnmarshalWithParams(b, a, fmt.Sprintf("application,explicit,tag:%v", asnAppTag.APREP))
	if err != nil {
		return fmt.Errorf("krb5cap: unmarshaling AP-REP: %w", err)
	}
	if a.MsgType != msgtype.KRB_AP_REP {
		return fmt.Errorf("krb5cap: message is not a KRB_AP_REP (type %d)", a.MsgType)
	}
	return nil
}

func (a *aPRep) marshal() ([]byte, error) {
	b, err := asn1.Marshal(*a)
	if err != nil {
		return nil, err
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.APREP), nil
}

func (a *aPRep) decryptEncPart(sessionKey types.EncryptionKey) (encAPRepPart, error) {
	var ep encAPRepPart
	decrypted, err := crypto.DecryptEncPart(a.EncPart, sessionKey, uint32(keyusage.AP_REP_ENCPART))
	if err != nil {
		return ep, fmt.Errorf("krb5cap: decrypting AP-REP enc-part: %w", err)
	}
	if err := ep.unmarshal(decrypted); err != nil {
		return ep, err
	}
	return ep, nil
}

func (a *encAPRepPart) unmarshal(b []byte) error {
	_, err := asn1.UnmarshalWithParams(b, a, fmt.Sprintf("application,explicit,tag:%v", asnAppTag.EncAPRepPart))
	if err != nil {
		return fmt.Errorf("krb5cap: unmarshaling AP-REP enc-part: %w", err)
	}
	return nil
}

func (a *encAPRepPart) marshal() ([]byte, error) {
	b, err := asn1.Marshal(*a)
	if err != nil {
		return nil, err
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.EncAPRepPart), nil
}

func newAPRepMessage(tktKVNO int, sessionKey types.EncryptionKey, encPart encAPRepPart) (aPRep, error) {
	m, err := encPart.marshal()
	if err != nil {
		return aPRep{}, fmt.Errorf("krb5cap: marshaling AP-REP enc-part: %w", err)
	}

	ed, err := crypto.GetEncryptedData(m, sessionKey, uint32(keyusage.AP_REP_ENCPART), tktKVNO)
	if err != nil {
		return aPRep{}, fmt.Errorf("krb5cap: encrypting AP-REP enc-part: %w", err)
	}

	return aPRep{PVNO: iana.PVNO, MsgType: msgtype.KRB_AP_REP, EncPart: ed}, nil
}
