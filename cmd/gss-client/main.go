// SPDX-License-Identifier: Apache-2.0

// Command gss-client connects to a gss-server, establishes a Kerberos V5
// security context, sends a wrapped message, and verifies the server's
// reply MIC -- the same exchange as the teacher's examples/go/gss-client,
// rewritten against this module's plain-function generic surface instead
// of a method-carrying context handle.
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	gss "github.com/golang-auth/gss-core"
	_ "github.com/golang-auth/gss-core/krb5"
)

var debugEnabled bool

func main() {
	port := flag.Int("port", 1234, "remote port to connect to")
	mutual := flag.Bool("mutual", false, "request mutual authentication")
	confReq := flag.Bool("seal", false, "request confidentiality (never honored, see DESIGN.md)")
	flag.BoolVar(&debugEnabled, "debug", false, "enable debugging")
	flag.Parse()

	if flag.NArg() != 3 {
		log.Fatalf("Usage: %s [-port <int>] [-mutual] [-seal] [-debug] host service msg\n", os.Args[0])
	}
	host, service, msg := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	addr := fmt.Sprintf("%s:%d", host, *port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()
	debug("connected to %s", addr)

	targetName, err := gss.ImportName([]byte(service), gss.OidNTHostbasedService)
	if err != nil {
		log.Fatal(err)
	}
	defer targetName.Release()

	var flags gss.ContextFlag
	if *mutual {
		flags |= gss.ContextFlagMutual
	}

	var ctx *gss.Context
	var inToken []byte
	for {
		var outToken []byte
		ctx, outToken, _, err = gss.InitSecContext(nil, ctx, targetName, gss.OidKerberosV5, flags, nil, inToken)
		if err != nil && !gss.ContinueNeeded(err) {
			log.Fatal(err)
		}
		if len(outToken) > 0 {
			if sendErr := sendToken(conn, outToken); sendErr != nil {
				log.Fatal(sendErr)
			}
			debug("sent context token (%d bytes):\n%s", len(outToken), formatToken(outToken))
		}
		if !gss.ContinueNeeded(err) {
			break
		}
		inToken, err = recvToken(conn)
		if err != nil {
			log.Fatal(err)
		}
		debug("read context token (%d bytes):\n%s", len(inToken), formatToken(inToken))
	}

	debug("context established, negotiated flags: %v", ctx.Flags())

	outMsg, hasConf, err := gss.Wrap(ctx, []byte(msg), *confReq)
	if err != nil {
		log.Fatal(err)
	}
	if *confReq && !hasConf {
		debug("warning: message was not encrypted")
	}
	if err := sendToken(conn, outMsg); err != nil {
		log.Fatal(err)
	}
	debug("sent wrapped message (%d bytes):\n%s", len(outMsg), formatToken(outMsg))

	micToken, err := recvToken(conn)
	if err != nil {
		log.Fatal(err)
	}
	if err := gss.VerifyMIC(ctx, []byte(msg), micToken); err != nil {
		log.Fatal(err)
	}
	fmt.Println("successfully verified message signature (MIC) from server")

	if err := gss.DeleteSecContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func sendToken(conn net.Conn, token []byte) error {
	szBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(szBuf, uint32(len(token)))
	if _, err := conn.Write(szBuf); err != nil {
		return err
	}
	_, err := conn.Write(token)
	return err
}

func recvToken(conn net.Conn) ([]byte, error) {
	szBuf := make([]byte, 4)
	if _, err := conn.Read(szBuf); err != nil {
		return nil, err
	}
	var tokenSize uint32
	if err := binary.Read(bytes.NewReader(szBuf), binary.BigEndian, &tokenSize); err != nil {
		return nil, err
	}
	token := make([]byte, tokenSize)
	_, err := conn.Read(token)
	return token, err
}

func formatToken(tok []byte) string {
	b := &strings.Builder{}
	bd := hex.Dumper(b)
	defer bd.Close()
	bd.Write(tok)
	return b.String()
}

func debug(format string, args ...interface{}) {
	if !debugEnabled {
		return
	}
	fmt.Printf(format+"\n", args...)
}
