// emberdb-cli - Interactive command-line client for EmberDB
//
// Usage:
//
//	emberdb-cli [flags] [command [arg ...]]
//
// With no command arguments it runs a REPL; otherwise it sends the one
// command and prints the reply.
//
// Flags:
//
//	-addr string   Server address (default "127.0.0.1:6379")
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emberdb/emberdb/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "Server address")
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	writer := protocol.NewWriter(conn)
	reader := protocol.NewReader(conn)

	if args := flag.Args(); len(args) > 0 {
		if err := roundTrip(writer, reader, args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", *addr)
		if !in.Scan() {
			fmt.Println()
			return
		}
		args, err := splitArgs(in.Text())
		if err != nil {
			fmt.Printf("(error) %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if strings.EqualFold(args[0], "exit") {
			return
		}
		if err := roundTrip(writer, reader, args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return
		}
		if strings.EqualFold(args[0], "quit") {
			return
		}
	}
}

func roundTrip(w *protocol.Writer, r *protocol.Reader, args []string, out io.Writer) error {
	cmd := make([][]byte, len(args))
	for i, a := range args {
		cmd[i] = []byte(a)
	}
	if err := w.WriteArray(cmd); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	v, err := r.ReadValue()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	printValue(out, v, "")
	return nil
}

func printValue(out io.Writer, v protocol.Value, indent string) {
	switch v.Type {
	case protocol.TypeSimpleString:
		fmt.Fprintf(out, "%s%s\n", indent, v.Str)
	case protocol.TypeError:
		fmt.Fprintf(out, "%s(error) %s\n", indent, v.Str)
	case protocol.TypeInteger:
		fmt.Fprintf(out, "%s(integer) %d\n", indent, v.Num)
	case protocol.TypeBulkString:
		if v.Null {
			fmt.Fprintf(out, "%s(nil)\n", indent)
			return
		}
		fmt.Fprintf(out, "%s%q\n", indent, v.Str)
	case protocol.TypeArray:
		if v.Null {
			fmt.Fprintf(out, "%s(nil)\n", indent)
			return
		}
		if len(v.Array) == 0 {
			fmt.Fprintf(out, "%s(empty array)\n", indent)
			return
		}
		for i, e := range v.Array {
			fmt.Fprintf(out, "%s%d) ", indent, i+1)
			printValue(out, e, "")
		}
	}
}

// splitArgs tokenizes a REPL line, honoring single and double quotes.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inToken := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		case c == '\'' || c == '"':
			end := strings.IndexByte(line[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unbalanced quotes")
			}
			quoted := line[i+1 : i+1+end]
			if c == '"' {
				unquoted, err := strconv.Unquote(`"` + quoted + `"`)
				if err != nil {
					return nil, fmt.Errorf("bad quoted string: %w", err)
				}
				quoted = unquoted
			}
			cur.WriteString(quoted)
			inToken = true
			i += end + 1
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}
