package mail

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"
)

// ConsoleService writes messages to the log and keeps them for inspection.
type ConsoleService struct {
	from          mail.Address
	subjPrefix    string
	disableOutput bool

	mu   sync.Mutex
	sent []Message
}

var _ Service = (*ConsoleService)(nil)

func NewConsoleService(from mail.Address, subjPrefix string) *ConsoleService {
	return &ConsoleService{from: from, subjPrefix: subjPrefix}
}

// NewConsoleServiceMock records messages without printing them.
func NewConsoleServiceMock() *ConsoleService {
	return &ConsoleService{
		from:          mail.Address{Name: "PrepPro", Address: "noreply@localhost"},
		disableOutput: true,
	}
}

func (svc *ConsoleService) Send(ctx context.Context, msg Message) error {
	if !msg.HasRecipients() || !msg.HasContent() {
		return fmt.Errorf("send email: message has no recipients or content")
	}

	if !svc.disableOutput {
		body := new(strings.Builder)
		fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
		fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
		fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
		fmt.Fprintf(body, "To: %s\r\n\r\n", joinAddresses(msg.To))
		fmt.Fprintf(body, "%s\r\n", msg.Text)
		log.Printf("[mail]\n%s", body.String())
	}

	svc.mu.Lock()
	svc.sent = append(svc.sent, msg)
	svc.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages sent so far.
func (svc *ConsoleService) Sent() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]Message, len(svc.sent))
	copy(out, svc.sent)
	return out
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
