package cookielab

import (
	"bytes"
	"strings"
	"testing"
)

func TestStdioPrompterCheckoutStatus(t *testing.T) {
	var out bytes.Buffer
	p := NewStdioPrompter(strings.NewReader("nope\nYES\n"), &out)

	ans, err := p.CheckoutStatus()
	if err != nil || ans != AnswerWaiting {
		t.Fatalf("first answer = %v, %v", ans, err)
	}
	ans, err = p.CheckoutStatus()
	if err != nil || ans != AnswerAtCheckout {
		t.Fatalf("second answer = %v, %v", ans, err)
	}
	if !strings.Contains(out.String(), "CHECKOUT") {
		t.Fatalf("prompt missing: %q", out.String())
	}
}

func TestStdioPrompterSkip(t *testing.T) {
	p := NewStdioPrompter(strings.NewReader("s\n"), &bytes.Buffer{})
	ans, err := p.CheckoutStatus()
	if err != nil || ans != AnswerSkip {
		t.Fatalf("answer = %v, %v", ans, err)
	}
}

func TestStdioPrompterPopupSeenInsists(t *testing.T) {
	var out bytes.Buffer
	p := NewStdioPrompter(strings.NewReader("maybe\nn\n"), &out)
	seen, err := p.PopupSeen()
	if err != nil {
		t.Fatalf("PopupSeen: %v", err)
	}
	if seen {
		t.Fatal("want popup not seen")
	}
	if !strings.Contains(out.String(), "'y' or 'n'") {
		t.Fatalf("re-ask missing: %q", out.String())
	}
}

func TestStdioPrompterConfirmActionEOF(t *testing.T) {
	p := NewStdioPrompter(strings.NewReader(""), &bytes.Buffer{})
	if err := p.ConfirmAction(); err != nil {
		t.Fatalf("EOF must count as confirmation: %v", err)
	}
}
