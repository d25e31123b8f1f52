// Command hashpw prints a bcrypt hash for the users file.
//
//	echo -n 's3cret' | go run ./cmd/hashpw
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pai-grc/internal/session"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *cost); err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, cost int) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}
	hash, err := session.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
