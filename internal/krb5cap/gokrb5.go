// SPDX-License-Identifier: Apache-2.0

package krb5cap

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	ianaflags "github.com/jcmturner/gokrb5/v8/iana/flags"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// Gokrb5Capability implements Capability on top of the pure-Go gokrb5
// library, the same library the teacher mechanism is built on
// (v2/krb5/krb5.go's krbClientInit/krbClientWithPrincipal/verifyAPReq).
type Gokrb5Capability struct{}

var _ Capability = Gokrb5Capability{}

func (Gokrb5Capability) AcquireTicket(service string) (Ticket, error) {
	cfg, err := config.Load(krbConfFile())
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: loading krb5.conf: %w", err)
	}

	ccache, err := credentials.LoadCCache(krbCCFile())
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: loading credentials cache: %w", err)
	}

	cl, err := client.NewFromCCache(ccache, cfg)
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: creating client: %w", err)
	}

	return ticketFromClient(cl, service)
}

func (Gokrb5Capability) AcquireTicketWithPrincipal(principal, keytabPath, krbConfPath, service string) (Ticket, error) {
	unameRealm := strings.SplitN(principal, "@", 2)
	if len(unameRealm) != 2 {
		return Ticket{}, fmt.Errorf("krb5cap: invalid principal %q, want uname@realm", principal)
	}
	if keytabPath == "" {
		keytabPath = krbKtFile()
	}
	if krbConfPath == "" {
		krbConfPath = krbConfFile()
	}

	cfg, err := config.Load(krbConfPath)
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: loading krb5.conf: %w", err)
	}
	kt, err := keytab.Load(keytabPath)
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: loading keytab: %w", err)
	}

	cl := client.NewWithKeytab(unameRealm[0], unameRealm[1], kt, cfg)
	return ticketFromClient(cl, service)
}

func ticketFromClient(cl *client.Client, service string) (Ticket, error) {
	if err := cl.AffirmLogin(); err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: checking TGT: %w", err)
	}

	tkt, key, err := cl.GetServiceTicket(service)
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: getting service ticket for %q: %w", service, err)
	}

	raw, err := tkt.Marshal()
	if err != nil {
		return Ticket{}, fmt.Errorf("krb5cap: marshaling ticket: %w", err)
	}

	return Ticket{
		Raw:         raw,
		SessionKey:  Key{KeyType: key.KeyType, Value: key.KeyValue},
		ServiceName: tkt.SName.PrincipalNameString(),
		ClientName:  cl.Credentials.CName().PrincipalNameString(),
		ClientRealm: cl.Credentials.Domain(),
	}, nil
}

func (Gokrb5Capability) BuildAPReq(ticket Ticket, gssChecksum []byte, mutualRequired bool) ([]byte, uint32, time.Time, int, error) {
	var tkt messages.Ticket
	if err := tkt.Unmarshal(ticket.Raw); err != nil {
		return nil, 0, time.Time{}, 0, fmt.Errorf("krb5cap: unmarshaling ticket: %w", err)
	}

	cRealm, cName := splitPrincipal(ticket.ClientName, ticket.ClientRealm)
	auth, err := types.NewAuthenticator(cRealm, cName)
	if err != nil {
		return nil, 0, time.Time{}, 0, fmt.Errorf("krb5cap: building authenticator: %w", err)
	}
	auth.SeqNumber &= 0x3fffffff
	auth.Cksum = types.Checksum{CksumType: chksumtype.GSSAPI, Checksum: gssChecksum}

	sessKey := types.EncryptionKey{KeyType: ticket.SessionKey.KeyType, KeyValue: ticket.SessionKey.Value}
	apreq, err := messages.NewAPReq(tkt, sessKey, auth)
	if err != nil {
		return nil, 0, time.Time{}, 0, fmt.Errorf("krb5cap: building AP-REQ: %w", err)
	}
	if mutualRequired {
		types.SetFlag(&apreq.APOptions, ianaflags.APOptionMutualRequired)
	}

	b, err := apreq.Marshal()
	if err != nil {
		return nil, 0, time.Time{}, 0, fmt.Errorf("krb5cap: marshaling AP-REQ: %w", err)
	}

	return b, uint32(auth.SeqNumber), auth.CTime, auth.Cusec, nil
}

func (Gokrb5Capability) ParseAPReq(ktFile string, apReqBytes []byte, skew time.Duration) (Ticket, Authenticator, error) {
	var apreq messages.APReq
	if err := apreq.Unmarshal(apReqBytes); err != nil {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: unmarshaling AP-REQ: %w", err)
	}

	if ktFile == "" {
		ktFile = krbKtFile()
	}
	kt, err := keytab.Load(ktFile)
	if err != nil {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: loading keytab: %w", err)
	}

	if err := apreq.Ticket.DecryptEncPart(kt, &apreq.Ticket.SName); err != nil {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: decrypting ticket: %w", err)
	}
	if ok, err := apreq.Ticket.Valid(skew); err != nil || !ok {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: invalid ticket: %w", err)
	}
	if err := apreq.DecryptAuthenticator(apreq.Ticket.DecryptedEncPart.Key); err != nil {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: decrypting authenticator: %w", err)
	}
	if apreq.Authenticator.Cksum.CksumType != chksumtype.GSSAPI {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: authenticator has wrong checksum type %d", apreq.Authenticator.Cksum.CksumType)
	}
	if !apreq.Authenticator.CName.Equal(apreq.Ticket.DecryptedEncPart.CName) {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: authenticator CName does not match ticket")
	}
	ct := apreq.Authenticator.CTime.Add(time.Duration(apreq.Authenticator.Cusec) * time.Microsecond)
	if now := time.Now().UTC(); now.Sub(ct) > skew || ct.Sub(now) > skew {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: clock skew too large")
	}

	raw, err := apreq.Ticket.Marshal()
	if err != nil {
		return Ticket{}, Authenticator{}, fmt.Errorf("krb5cap: re-marshaling ticket: %w", err)
	}

	tk := Ticket{
		Raw:         raw,
		SessionKey:  Key{KeyType: apreq.Ticket.DecryptedEncPart.Key.KeyType, Value: apreq.Ticket.DecryptedEncPart.Key.KeyValue},
		ServiceName: apreq.Ticket.SName.PrincipalNameString(),
		ClientName:  apreq.Ticket.DecryptedEncPart.CName.PrincipalNameString(),
		ClientRealm: apreq.Ticket.DecryptedEncPart.CRealm,
	}

	auth := Authenticator{
		ClientName:     apreq.Authenticator.CName.PrincipalNameString(),
		ClientRealm:    apreq.Authenticator.CRealm,
		CTime:          apreq.Authenticator.CTime,
		Cusec:          apreq.Authenticator.Cusec,
		SeqNumber:      uint32(apreq.Authenticator.SeqNumber),
		GSSChecksum:    apreq.Authenticator.Cksum.Checksum,
		MutualRequired: types.IsFlagSet(&apreq.APOptions, ianaflags.APOptionMutualRequired),
	}
	if apreq.Authenticator.SubKey.KeyType != 0 {
		auth.SubKey = &Key{KeyType: apreq.Authenticator.SubKey.KeyType, Value: apreq.Authenticator.SubKey.KeyValue}
	}

	return tk, auth, nil
}

func (Gokrb5Capability) BuildAPRep(ticket Ticket, cTime time.Time, cUsec int) ([]byte, uint32, error) {
	seq, err := rand.Int(rand.Reader, big.NewInt(math.MaxUint32))
	if err != nil {
		return nil, 0, err
	}
	seqNum := seq.Int64() & 0x3fffffff

	var tkt messages.Ticket
	if err := tkt.Unmarshal(ticket.Raw); err != nil {
		return nil, 0, fmt.Errorf("krb5cap: unmarshaling ticket: %w", err)
	}
	sessKey := types.EncryptionKey{KeyType: ticket.SessionKey.KeyType, KeyValue: ticket.SessionKey.Value}

	encPart := encAPRepPart{
		CTime:          cTime,
		Cusec:          cUsec,
		SequenceNumber: seqNum,
	}
	aprep, err := newAPRepMessage(tkt.EncPart.KVNO, sessKey, encPart)
	if err != nil {
		return nil, 0, err
	}

	out, err := aprep.marshal()
	if err != nil {
		return nil, 0, fmt.Errorf("krb5cap: marshaling AP-REP: %w", err)
	}

	return out, uint32(seqNum), nil
}

func (Gokrb5Capability) ParseAPRep(ticket Ticket, apRepBytes []byte) (time.Time, int, uint32, error) {
	var aprep aPRep
	if err := aprep.unmarshal(apRepBytes); err != nil {
		return time.Time{}, 0, 0, err
	}

	sessKey := types.EncryptionKey{KeyType: ticket.SessionKey.KeyType, KeyValue: ticket.SessionKey.Value}
	encPart, err := aprep.decryptEncPart(sessKey)
	if err != nil {
		return time.Time{}, 0, 0, err
	}

	return encPart.CTime, encPart.Cusec, uint32(encPart.SequenceNumber), nil
}

func (Gokrb5Capability) Checksum(key Key, keyUsage uint32, data []byte) ([]byte, error) {
	et, err := crypto.GetEtype(key.KeyType)
	if err != nil {
		return nil, fmt.Errorf("krb5cap: unsupported key enctype %d: %w", key.KeyType, err)
	}
	return et.GetChecksumHash(key.Value, data, keyUsage)
}

func (Gokrb5Capability) EncryptCBC(key Key, iv []byte, plaintext []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(key.Value)
	if err != nil {
		if block, err = des.NewCipher(key.Value); err != nil {
			return nil, fmt.Errorf("krb5cap: building cipher: %w", err)
		}
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

func (Gokrb5Capability) DecryptCBC(key Key, iv []byte, ciphertext []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(key.Value)
	if err != nil {
		if block, err = des.NewCipher(key.Value); err != nil {
			return nil, fmt.Errorf("krb5cap: building cipher: %w", err)
		}
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

func (Gokrb5Capability) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (Gokrb5Capability) KeyInfo(key Key) (blockSize, checksumSize int, err error) {
	switch key.KeyType {
	case 1, 3: // des-cbc-crc, des-cbc-md5 (RFC 1964 §3, DES-CBC-MD5 suite)
		return des.BlockSize, 8, nil
	case 16: // des3-cbc-sha1-kd (RFC 1964 §5.1 amendment, 3DES-CBC-HMAC-SHA1-KD suite)
		return des.BlockSize, 20, nil
	default:
		return 0, 0, fmt.Errorf("krb5cap: enctype %d has no RFC 1964 per-message cipher suite", key.KeyType)
	}
}

func splitPrincipal(name, realm string) (string, types.PrincipalName) {
	return realm, types.NewPrincipalName(ianaNTPrincipal, name)
}

const ianaNTPrincipal = 1
