package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var errEmptyPassword = errors.New("password cannot be empty")

// readPassword asks for a password on the terminal without echoing it.
// When stdin is not a terminal the first line of input is used.
var readPassword = func(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// passwordFor returns given, or prompts for the password of user.
func passwordFor(user, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	p, err := readPassword(fmt.Sprintf("Password for %s: ", user))
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", errEmptyPassword
	}
	return p, nil
}
