package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/di"
	"github.com/mikey/imap-autoresponder/internal/factory"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run checks a single message against the filter and, optionally, the
// cooldown ledger, and reports whether the responder would reply to it.
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	filter *core.Filter,
	composer *core.Composer,
	ledgerFactory *factory.LedgerFactory,
) error {
	defer logger.Sync()

	// Read message from file or stdin
	var msgReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		msgReader = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		msgReader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	// Parse message
	parsed, err := mail.ReadMessage(bufio.NewReader(msgReader))
	if err != nil {
		logger.Fatal("Failed to parse message", zap.Error(err))
	}

	from := parsed.Header.Get("From")
	msg := &core.InboundMessage{
		Sender:    core.CanonicalAddress(from),
		Subject:   parsed.Header.Get("Subject"),
		MessageID: strings.Trim(parsed.Header.Get("Message-Id"), "<> "),
		Header:    make(core.Header),
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		msg.DisplayName = addr.Name
	}

	// Copy headers
	for key, values := range parsed.Header {
		for _, value := range values {
			msg.Header.Add(key, value)
		}
	}

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", from)
	fmt.Printf("Sender key: %s\n", msg.Sender)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Message-ID: %s\n", msg.MessageID)
	fmt.Printf("Auto-Submitted: %s\n", msg.Header.Get(core.HeaderAutoSubmitted))
	fmt.Printf("Precedence: %s\n", msg.Header.Get(core.HeaderPrecedence))
	fmt.Printf("\n")

	// Print verdict
	fmt.Printf("=== Verdict ===\n")
	if reason := filter.RejectReason(msg); reason != "" {
		fmt.Printf("Would reply: false (%s)\n", reason)
		return nil
	}

	if flags.WithLedger {
		ledger, err := ledgerFactory.CreateReplyLedger()
		if err != nil {
			logger.Fatal("Failed to open ledger", zap.Error(err))
		}
		defer func() {
			if err := ledger.Close(); err != nil {
				logger.Error("Failed to close ledger", zap.Error(err))
			}
		}()

		allowed, err := ledger.MayReply(context.Background(), msg.Sender)
		if err != nil {
			logger.Fatal("Failed to consult ledger", zap.Error(err))
		}
		if !allowed {
			fmt.Printf("Would reply: false (sender is inside the cooldown window)\n")
			return nil
		}
		fmt.Printf("Would reply: true (filter passed, ledger allows)\n")
	} else {
		fmt.Printf("Would reply: true (filter passed; ledger not consulted)\n")
	}

	if flags.ShowReply {
		reply := composer.Compose(msg.Sender, msg.MessageID)
		fmt.Printf("\n=== Reply Preview ===\n")
		fmt.Printf("To: %s\n", reply.To)
		fmt.Printf("Subject: %s\n", reply.Subject)
		if reply.InReplyTo != "" {
			fmt.Printf("In-Reply-To: <%s>\n", reply.InReplyTo)
		}
		for _, key := range []string{core.HeaderAutoSubmitted, core.HeaderPrecedence, core.HeaderAutoResponseSuppress} {
			fmt.Printf("%s: %s\n", key, reply.Headers.Get(key))
		}
		fmt.Printf("\n%s\n", reply.Body)
	}

	return nil
}
