package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

type sentMail struct {
	from string
	to   string
	msg  string
}

func newCapturingNotifier() (*SMTPNotifier, *[]sentMail) {
	n := NewSMTPNotifier(config.NotifyConfig{
		Enabled:  true,
		From:     "hello@clinic.example",
		AdminTo:  "admin@clinic.example",
		SiteName: "Lymphatic Specialists of Madison",
		BaseURL:  "https://clinic.example",
	}, zap.NewNop())

	var sent []sentMail
	n.send = func(from, to string, msg []byte) error {
		sent = append(sent, sentMail{from: from, to: to, msg: string(msg)})
		return nil
	}
	return n, &sent
}

func TestContactReceivedSendsBothEmails(t *testing.T) {
	n, sent := newCapturingNotifier()

	sub := &core.ContactSubmission{
		ID:          "sub-1",
		FirstName:   "Sarah",
		LastName:    "Miller",
		Email:       "sarah@example.com",
		Message:     "Looking forward to my first visit.",
		SubmittedAt: time.Now(),
	}
	if err := n.ContactReceived(context.Background(), sub); err != nil {
		t.Fatalf("ContactReceived: %v", err)
	}

	if len(*sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(*sent))
	}

	admin := (*sent)[0]
	if admin.to != "admin@clinic.example" {
		t.Errorf("admin mail to = %q", admin.to)
	}
	if !strings.Contains(admin.msg, "Sarah Miller") || !strings.Contains(admin.msg, "sub-1") {
		t.Errorf("admin mail missing submission details:\n%s", admin.msg)
	}

	user := (*sent)[1]
	if user.to != "sarah@example.com" {
		t.Errorf("user mail to = %q", user.to)
	}
	if !strings.Contains(user.msg, "Hi Sarah") {
		t.Errorf("user mail missing greeting:\n%s", user.msg)
	}
}

func TestSubscriberJoined(t *testing.T) {
	t.Run("new subscriber gets a welcome", func(t *testing.T) {
		n, sent := newCapturingNotifier()
		if err := n.SubscriberJoined(context.Background(), "new@example.com", true); err != nil {
			t.Fatal(err)
		}
		if len(*sent) != 2 {
			t.Fatalf("sent %d emails, want admin notification plus welcome", len(*sent))
		}
		welcome := (*sent)[1]
		if !strings.Contains(welcome.msg, "unsubscribe/new@example.com") {
			t.Errorf("welcome mail missing unsubscribe link:\n%s", welcome.msg)
		}
	})

	t.Run("re-subscription only notifies the admin", func(t *testing.T) {
		n, sent := newCapturingNotifier()
		if err := n.SubscriberJoined(context.Background(), "back@example.com", false); err != nil {
			t.Fatal(err)
		}
		if len(*sent) != 1 {
			t.Fatalf("sent %d emails, want 1", len(*sent))
		}
		if (*sent)[0].to != "admin@clinic.example" {
			t.Errorf("mail to = %q", (*sent)[0].to)
		}
	})
}

func TestSubscriberLeft(t *testing.T) {
	n, sent := newCapturingNotifier()
	if err := n.SubscriberLeft(context.Background(), "gone@example.com"); err != nil {
		t.Fatal(err)
	}
	if len(*sent) != 1 || (*sent)[0].to != "gone@example.com" {
		t.Fatalf("unexpected sends: %+v", *sent)
	}
	if !strings.Contains((*sent)[0].msg, "unsubscribed") {
		t.Errorf("confirmation mail content:\n%s", (*sent)[0].msg)
	}
}

func TestMessageHeaders(t *testing.T) {
	n, sent := newCapturingNotifier()
	if err := n.SubscriberLeft(context.Background(), "gone@example.com"); err != nil {
		t.Fatal(err)
	}
	msg := (*sent)[0].msg
	for _, header := range []string{
		"From: hello@clinic.example\r\n",
		"To: gone@example.com\r\n",
		"Subject: ",
		"Content-Type: text/plain; charset=utf-8\r\n",
	} {
		if !strings.Contains(msg, header) {
			t.Errorf("message missing header %q:\n%s", header, msg)
		}
	}
}
