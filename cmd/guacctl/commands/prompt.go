package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fivetwenty-io/guacrest/internal/constants"
)

// prompter reads interactive input. Secrets are read without echo from the
// terminal, or line by line from the command input when fromStdin is set.
type prompter struct {
	out       io.Writer
	reader    *bufio.Reader
	fromStdin bool
}

func newPrompter(in io.Reader, out io.Writer, fromStdin bool) *prompter {
	return &prompter{
		out:       out,
		reader:    bufio.NewReader(in),
		fromStdin: fromStdin,
	}
}

func (p *prompter) readLine(prompt string) (string, error) {
	if !p.fromStdin {
		_, _ = fmt.Fprint(p.out, prompt)
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func (p *prompter) readSecret(prompt string) (string, error) {
	if p.fromStdin {
		secret, err := p.readLine(prompt)
		if err != nil {
			return "", err
		}

		if secret == "" {
			return "", constants.ErrEmptyPasswordInput
		}

		return secret, nil
	}

	fd := int(os.Stdin.Fd()) // #nosec G115 -- file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", constants.ErrNotATerminal
	}

	_, _ = fmt.Fprint(p.out, prompt)

	secret, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(p.out)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(secret) == 0 {
		return "", constants.ErrEmptyPasswordInput
	}

	return string(secret), nil
}

// readNewSecret reads a secret twice and requires both entries to match.
func (p *prompter) readNewSecret(prompt string) (string, error) {
	secret, err := p.readSecret(prompt)
	if err != nil {
		return "", err
	}

	confirmation, err := p.readSecret("Confirm " + strings.ToLower(prompt[:1]) + prompt[1:])
	if err != nil {
		return "", err
	}

	if secret != confirmation {
		return "", constants.ErrPasswordMismatch
	}

	return secret, nil
}
