package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	v := NewEmptyViper()
	v.Set("account.address", "me@example.com")
	v.Set("account.password", "secret")
	v.Set("imap.host", "imap.example.com")
	v.Set("smtp.host", "smtp.example.com")
	return NewFromViper(v)
}

func TestDefaults(t *testing.T) {
	cfg := validConfig()

	imap, err := cfg.GetIMAP()
	if err != nil {
		t.Fatalf("GetIMAP() error = %v", err)
	}
	if imap.Port != 993 || !imap.UseTLS || imap.Mailbox != "INBOX" || !imap.MarkSeen {
		t.Errorf("IMAP defaults = %+v", imap)
	}

	smtp, err := cfg.GetSMTP()
	if err != nil {
		t.Fatalf("GetSMTP() error = %v", err)
	}
	if smtp.Port != 465 || !smtp.UseTLS || smtp.IOTimeout != 30*time.Second {
		t.Errorf("SMTP defaults = %+v", smtp)
	}

	ledger, err := cfg.GetLedger()
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if ledger.Type != "sqlite" || ledger.Cooldown != 24*time.Hour || ledger.Retention != 0 {
		t.Errorf("ledger defaults = %+v", ledger)
	}

	poll, err := cfg.GetPoll()
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if poll.Interval != time.Minute || poll.CycleTimeout != 5*time.Minute {
		t.Errorf("poll defaults = %+v", poll)
	}

	filter := cfg.GetFilter()
	if got := filter.Keywords; len(got) != 1 || got[0] != "noreply" {
		t.Errorf("filter defaults = %v", got)
	}
	if len(filter.ExemptDomains) != 0 {
		t.Errorf("filter.exempt_domains default = %v, want empty", filter.ExemptDomains)
	}
	if got := cfg.GetReply().Subject; got != "Automatic reply" {
		t.Errorf("reply.subject default = %q", got)
	}
}

func TestCredentialFallback(t *testing.T) {
	cfg := validConfig()

	imap, err := cfg.GetIMAP()
	if err != nil {
		t.Fatalf("GetIMAP() error = %v", err)
	}
	if imap.Username != "me@example.com" || imap.Password != "secret" {
		t.Errorf("IMAP credentials = %q/%q, want account fallback", imap.Username, imap.Password)
	}

	v := cfg.GetViper()
	v.Set("smtp.username", "relay-user")
	v.Set("smtp.password", "relay-pass")
	smtp, err := cfg.GetSMTP()
	if err != nil {
		t.Fatalf("GetSMTP() error = %v", err)
	}
	if smtp.Username != "relay-user" || smtp.Password != "relay-pass" {
		t.Errorf("SMTP credentials = %q/%q, want explicit values", smtp.Username, smtp.Password)
	}
}

func TestRetentionFloor(t *testing.T) {
	cfg := validConfig()
	v := cfg.GetViper()
	v.Set("ledger.retention", "1h")

	ledger, err := cfg.GetLedger()
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if ledger.Retention != ledger.Cooldown {
		t.Errorf("Retention = %v, want raised to cooldown %v", ledger.Retention, ledger.Cooldown)
	}

	v.Set("ledger.retention", "72h")
	ledger, err = cfg.GetLedger()
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if ledger.Retention != 72*time.Hour {
		t.Errorf("Retention = %v, want 72h untouched", ledger.Retention)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() on complete config = %v", err)
	}

	tests := []struct {
		name string
		set  map[string]interface{}
		want string
	}{
		{
			name: "missing address",
			set:  map[string]interface{}{"account.address": ""},
			want: "account.address",
		},
		{
			name: "missing password",
			set:  map[string]interface{}{"account.password": ""},
			want: "account.password",
		},
		{
			name: "missing imap host",
			set:  map[string]interface{}{"imap.host": ""},
			want: "imap.host",
		},
		{
			name: "unknown ledger type",
			set:  map[string]interface{}{"ledger.type": "redis"},
			want: "ledger.type",
		},
		{
			name: "unparseable cooldown",
			set:  map[string]interface{}{"ledger.cooldown": "yesterday"},
			want: "ledger.cooldown",
		},
		{
			name: "zero poll interval",
			set:  map[string]interface{}{"poll.interval": "0s"},
			want: "poll.interval",
		},
		{
			name: "negative cooldown",
			set:  map[string]interface{}{"ledger.cooldown": "-1h"},
			want: "ledger.cooldown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			for key, value := range tt.set {
				cfg.GetViper().Set(key, value)
			}
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want mention of %s", err, tt.want)
			}
		})
	}
}
