package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

const dialTimeout = 10 * time.Second

// Options describes the submission server replies go out through.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the envelope and header sender, normally the monitored
	// address itself.
	From string

	// HelloDomain is announced in EHLO and used in generated
	// Message-IDs. Defaults to the local hostname.
	HelloDomain string

	// UseTLS selects implicit TLS. When false the connection starts in
	// plaintext and upgrades with STARTTLS; there is no cleartext mode.
	UseTLS bool

	// IOTimeout bounds the whole SMTP transaction.
	IOTimeout time.Duration
}

// Client delivers replies over SMTP. Each send opens a fresh connection,
// which keeps the adapter free of keepalive and reconnect state at the
// cost of one handshake per reply.
type Client struct {
	opts      Options
	logger    *zap.Logger
	sanitizer *utils.TextSanitizer

	clock func() time.Time
}

// NewClient creates a new SMTP submission client.
func NewClient(opts Options, logger *zap.Logger, sanitizer *utils.TextSanitizer) *Client {
	return &Client{
		opts:      opts,
		logger:    logger,
		sanitizer: sanitizer,
		clock:     time.Now,
	}
}

// Send delivers one reply. An error means the message cannot be assumed
// delivered and the caller must not record it as sent.
func (c *Client) Send(ctx context.Context, reply *core.OutboundReply) error {
	addr := net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(c.opts.IOTimeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}
	if c.opts.UseTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: c.opts.Host})
	}

	client := smtp.NewClient(conn)
	defer client.Close()

	hello := c.opts.HelloDomain
	if hello == "" {
		if hostname, err := os.Hostname(); err == nil {
			hello = hostname
		} else {
			hello = "localhost"
		}
	}
	if err := client.Hello(hello); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if !c.opts.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: c.opts.Host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if c.opts.Username != "" {
		auth := sasl.NewPlainClient("", c.opts.Username, c.opts.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := client.Mail(c.opts.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(reply.To, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	messageID := newMessageID(hello)
	if _, err := wc.Write(renderMessage(reply, c.opts.From, messageID, c.clock(), c.sanitizer)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// The server has accepted the message at this point; a failed QUIT
	// is not a failed send.
	if err := client.Quit(); err != nil {
		c.logger.Warn("QUIT failed after accepted message", zap.Error(err))
	}

	c.logger.Debug("Delivered reply",
		zap.String("to", reply.To),
		zap.String("message_id", messageID))
	return nil
}
