package inbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"
	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

const dialTimeout = 30 * time.Second

// Options describes how to reach and read the monitored mailbox.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string

	// UseTLS selects implicit TLS. When false the connection starts in
	// plaintext and upgrades with STARTTLS; there is no cleartext mode.
	UseTLS bool

	// MarkSeen makes the header fetch itself flag messages seen, the
	// cheapest mode but one that drops a message if the process dies
	// before replying. When false, messages are peeked and flagged only
	// once the responder is done with them.
	MarkSeen bool

	// IOTimeout caps inactivity on the connection. It should comfortably
	// exceed the time spent sending replies between fetches.
	IOTimeout time.Duration
}

// Client opens IMAP sessions against the monitored mailbox.
type Client struct {
	opts      Options
	logger    *zap.Logger
	sanitizer *utils.TextSanitizer
}

// NewClient creates a new IMAP inbox client.
func NewClient(opts Options, logger *zap.Logger, sanitizer *utils.TextSanitizer) *Client {
	return &Client{
		opts:      opts,
		logger:    logger,
		sanitizer: sanitizer,
	}
}

// Connect dials the server, authenticates, and selects the configured
// mailbox. The returned session holds the connection until Close.
func (c *Client) Connect(ctx context.Context) (core.InboxSession, error) {
	addr := net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
	imapOpts := &imapclient.Options{
		// Decode non-UTF-8 envelope fields instead of passing them
		// through raw.
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}

	var client *imapclient.Client
	if c.opts.UseTLS {
		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		tlsConn := tls.Client(newDeadlineConn(conn, c.opts.IOTimeout), &tls.Config{
			ServerName: c.opts.Host,
		})
		client = imapclient.New(tlsConn, imapOpts)
	} else {
		var err error
		client, err = imapclient.DialStartTLS(addr, imapOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
	}

	if err := client.Login(c.opts.Username, c.opts.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to login as %s: %w", c.opts.Username, err)
	}
	if _, err := client.Select(c.opts.Mailbox, nil).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to select mailbox %s: %w", c.opts.Mailbox, err)
	}

	c.logger.Debug("Inbox session established",
		zap.String("host", c.opts.Host),
		zap.String("mailbox", c.opts.Mailbox))

	return &session{
		client:    client,
		markSeen:  c.opts.MarkSeen,
		logger:    c.logger,
		sanitizer: c.sanitizer,
	}, nil
}

type session struct {
	client    *imapclient.Client
	markSeen  bool
	logger    *zap.Logger
	sanitizer *utils.TextSanitizer
}

// ListUnseen returns the UIDs of messages without the Seen flag, oldest
// first.
func (s *session) ListUnseen(ctx context.Context) ([]core.MessageID, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen messages: %w", err)
	}

	uids := data.AllUIDs()
	ids := make([]core.MessageID, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, core.MessageID(strconv.FormatUint(uint64(uid), 10)))
	}

	s.logger.Debug("Unseen search complete", zap.Int("count", len(ids)))
	return ids, nil
}

// Fetch retrieves the envelope and header section of one message and
// reduces them to the responder's snapshot.
func (s *session) Fetch(ctx context.Context, id core.MessageID) (*core.InboundMessage, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierHeader,
		Peek:      !s.markSeen,
	}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	data := fetchCmd.Next()
	if data == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}
	buf, err := data.Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to collect message %s: %w", id, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message %s returned no header section", id)
	}

	msg, err := parseHeader(raw, s.sanitizer)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, err)
	}
	fillFromEnvelope(msg, buf.Envelope, s.sanitizer)

	s.logger.Debug("Fetched message",
		zap.String("id", string(id)),
		zap.String("sender", msg.Sender),
		zap.String("subject", msg.Subject))
	return msg, nil
}

// MarkSeen flags the message seen. In eager mode the fetch already did,
// so this is a no-op.
func (s *session) MarkSeen(ctx context.Context, id core.MessageID) error {
	if s.markSeen {
		return nil
	}

	uid, err := parseUID(id)
	if err != nil {
		return err
	}
	storeCmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("failed to mark message %s seen: %w", id, err)
	}
	return nil
}

// Close logs out and releases the connection.
func (s *session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		s.client.Close()
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

func parseUID(id core.MessageID) (imap.UID, error) {
	n, err := strconv.ParseUint(string(id), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed message id %q: %w", id, err)
	}
	return imap.UID(n), nil
}
