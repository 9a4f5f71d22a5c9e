// SPDX-License-Identifier: Apache-2.0

// Command gss-server accepts connections from gss-client, establishes a
// Kerberos V5 security context, unwraps the client's message, and sends
// back a MIC over it -- the same exchange as the teacher's
// examples/go/gss-server, rewritten against this module's plain-function
// generic surface.
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"

	gss "github.com/golang-auth/gss-core"
	_ "github.com/golang-auth/gss-core/krb5"
)

var debugEnabled bool

func main() {
	port := flag.Int("port", 1234, "local port to listen on")
	flag.BoolVar(&debugEnabled, "d", false, "enable debugging")
	flag.Parse()

	addr := fmt.Sprintf(":%d", *port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for {
		conn, err := l.Accept()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		go handleConn(conn)
	}
}

func handleConn(conn net.Conn) {
	defer conn.Close()
	debug("accepted connection from %s", conn.RemoteAddr())

	var ctx *gss.Context
	for !ctx.IsEstablished() {
		inToken, err := recvToken(conn)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}

		var outToken []byte
		var acceptErr error
		ctx, outToken, _, _, acceptErr = gss.AcceptSecContext(nil, ctx, nil, inToken)
		if len(outToken) > 0 {
			if sendErr := sendToken(conn, outToken); sendErr != nil {
				fmt.Fprintln(os.Stderr, sendErr)
				return
			}
		}
		if acceptErr != nil && !gss.ContinueNeeded(acceptErr) {
			fmt.Fprintln(os.Stderr, acceptErr)
			return
		}
	}

	debug("context established, client: %s", ctx.PeerName())
	debug("negotiated flags: %v", ctx.Flags())

	inToken, err := recvToken(conn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	msg, isSealed, err := gss.Unwrap(ctx, inToken)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	protStr := "signed"
	if isSealed {
		protStr = "sealed"
	}
	fmt.Printf("received %s message: %q\n", protStr, msg)

	outToken, err := gss.GetMIC(ctx, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if err := sendToken(conn, outToken); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	if err := gss.DeleteSecContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func sendToken(conn net.Conn, token []byte) error {
	szBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(szBuf, uint32(len(token)))
	if _, err := conn.Write(szBuf); err != nil {
		return err
	}
	n, err := conn.Write(token)
	debug("wrote %d bytes to client", n)
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
	n, err := conn.Read(token)
	debug("read %d byte token from client", n)
	return token, err
}

func debug(format string, args ...interface{}) {
	if !debugEnabled {
		return
	}
	fmt.Printf(format+"\n", args...)
}
