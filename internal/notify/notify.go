// Package notify turns fired reminder alarms into desktop notifications.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/scheduler"
)

const DateFormat = "January 2, 2006"

type Notification struct {
	Key   string
	Title string
	Body  string
}

// Compose builds the message for the alarm days before rec expires.
func Compose(rec model.TrackedRecord, days int) Notification {
	return Notification{
		Key:   scheduler.Key(rec.ID, days),
		Title: strings.ToUpper(string(rec.DocumentType)) + " Expiring Soon",
		Body: fmt.Sprintf("%s's %s will expire in %d days (%s)",
			rec.DisplayName(), rec.DocumentType.Label(), days, rec.ExpiryDate.Format(DateFormat)),
	}
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopNotifier struct{}

func (NoopNotifier) Send(Notification) error { return nil }

// ExecDesktopNotifier shells out to notify-send on linux and osascript on
// darwin. Other platforms are silently skipped.
type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", "--app-name=rightontime", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

// Recorder keeps every notification it is sent.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Send(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
