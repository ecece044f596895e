package cookielab

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CheckoutAnswer is the operator's response to the checkout gate.
type CheckoutAnswer int

const (
	// AnswerWaiting means the operator is not at checkout yet; ask again.
	AnswerWaiting CheckoutAnswer = iota
	// AnswerAtCheckout means the operator reached the checkout page.
	AnswerAtCheckout
	// AnswerSkip means the coupon step is skipped for this run.
	AnswerSkip
)

// Prompter gates the manual steps of a run. CheckoutStatus is polled until it
// returns AnswerAtCheckout or AnswerSkip; PopupSeen is asked once on the
// at-checkout path; ConfirmAction blocks until the operator has clicked the
// extension.
type Prompter interface {
	CheckoutStatus() (CheckoutAnswer, error)
	PopupSeen() (bool, error)
	ConfirmAction() error
}

// StdioPrompter asks the operator over a terminal.
type StdioPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewStdioPrompter reads answers from in and writes prompts to out.
func NewStdioPrompter(in io.Reader, out io.Writer) *StdioPrompter {
	return &StdioPrompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *StdioPrompter) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.ToLower(strings.TrimSpace(p.scanner.Text())), nil
}

// CheckoutStatus asks whether the operator reached checkout.
func (p *StdioPrompter) CheckoutStatus() (CheckoutAnswer, error) {
	fmt.Fprint(p.out, "Are you at CHECKOUT now? [y]es / [s]kip / [n]o: ")
	ans, err := p.readLine()
	if err != nil {
		return AnswerWaiting, err
	}
	switch ans {
	case "y", "yes":
		return AnswerAtCheckout, nil
	case "s", "skip":
		return AnswerSkip, nil
	default:
		fmt.Fprintln(p.out, "OK, still waiting. (Tip: press 's' to skip.)")
		return AnswerWaiting, nil
	}
}

// PopupSeen asks whether the extension popup is visible, insisting on y/n.
func (p *StdioPrompter) PopupSeen() (bool, error) {
	for {
		fmt.Fprint(p.out, "Do you see the extension popup right now? [y]es / [n]o: ")
		ans, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch ans {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please type 'y' or 'n'.")
	}
}

// ConfirmAction waits for ENTER after the operator clicked the extension.
func (p *StdioPrompter) ConfirmAction() error {
	fmt.Fprintln(p.out, "Click the extension popup (or its toolbar button) now, then press ENTER here.")
	_, err := p.readLine()
	if err == io.EOF {
		return nil
	}
	return err
}
