package mailer

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_LogSenderWithoutHost(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	ls, ok := s.(*LogSender)
	if !ok {
		t.Fatalf("got %T, want *LogSender", s)
	}
	if err := ls.Send(context.Background(), Email{To: "a@b.c", Subject: "hi"}); err != nil {
		t.Fatal(err)
	}
	if len(ls.Sent) != 1 {
		t.Errorf("Sent = %d", len(ls.Sent))
	}
}

func TestBuildPasswordResetEmail(t *testing.T) {
	e := BuildPasswordResetEmail(PasswordResetData{
		SiteName:  "TaskFlow",
		Name:      "Ana",
		ResetLink: "https://example.com/reset?token=abc",
		ExpiresIn: "1 hour",
	})
	if !strings.Contains(e.Subject, "TaskFlow") {
		t.Errorf("subject = %q", e.Subject)
	}
	for _, body := range []string{e.TextBody, e.HTMLBody} {
		if !strings.Contains(body, "token=abc") {
			t.Errorf("body missing link: %q", body)
		}
	}
}

func TestBuildMessage_Multipart(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "TaskFlow", Email{
		To: "x@example.com", Subject: "S", TextBody: "t", HTMLBody: "<p>h</p>",
	}))
	if !strings.Contains(msg, "multipart/alternative") || !strings.Contains(msg, "To: x@example.com") {
		t.Errorf("unexpected message:\n%s", msg)
	}
}
