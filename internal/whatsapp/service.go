// Package whatsapp connects the bot to a linked WhatsApp device. Staff are
// addressed by their phone number in digits, which is also the sender id
// handed to the message handler.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// MessageHandler receives the text of an inbound message and the sender's
// phone digits.
type MessageHandler func(ctx context.Context, sender, text string) error

// client is the part of *whatsmeow.Client used for sending.
type client interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

type Service struct {
	wa     *whatsmeow.Client
	sender client
	log    zerolog.Logger

	mu      sync.RWMutex
	handler MessageHandler
	jids    map[string]types.JID
}

// New opens (or creates) the device store under dataDir.
func New(ctx context.Context, dataDir string, log zerolog.Logger) (*Service, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	wa := whatsmeow.NewClient(device, nil)
	s := newService(wa, log)
	s.wa = wa
	wa.AddEventHandler(s.eventHandler)
	return s, nil
}

func newService(c client, log zerolog.Logger) *Service {
	return &Service{sender: c, log: log, jids: map[string]types.JID{}}
}

// Connect connects the linked device. An unpaired device prints pairing QR
// codes to qrOut until one is scanned.
func (s *Service) Connect(ctx context.Context, qrOut io.Writer) error {
	if s.wa.Store.ID != nil {
		if err := s.wa.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		return nil
	}

	qrChan, err := s.wa.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := s.wa.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("pairing")
			continue
		}
		if err := WriteQR(qrOut, evt.Code); err != nil {
			s.log.Warn().Err(err).Msg("render pairing code")
		}
	}
	return nil
}

// WriteQR renders a pairing code for a terminal.
func WriteQR(w io.Writer, code string) error {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n%s\nScan with WhatsApp: Settings > Linked Devices > Link a Device\n", q.ToSmallString(false))
	return err
}

func (s *Service) Disconnect() {
	if s.wa != nil {
		s.wa.Disconnect()
	}
}

func (s *Service) SetMessageHandler(h MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Deliver sends text to a phone number. The number is verified once and
// the resolved JID is cached.
func (s *Service) Deliver(ctx context.Context, recipient, text string) error {
	phone := phoneDigits(recipient)
	if phone == "" {
		return fmt.Errorf("invalid recipient %q", recipient)
	}
	jid, err := s.resolve(ctx, phone)
	if err != nil {
		return err
	}
	resp, err := s.sender.SendMessage(ctx, jid, &waE2E.Message{Conversation: &text})
	if err != nil {
		return fmt.Errorf("send to %s: %w", phone, err)
	}
	s.log.Debug().Str("jid", jid.String()).Str("message_id", resp.ID).Msg("sent")
	return nil
}

func (s *Service) resolve(ctx context.Context, phone string) (types.JID, error) {
	s.mu.RLock()
	jid, ok := s.jids[phone]
	s.mu.RUnlock()
	if ok {
		return jid, nil
	}

	resp, err := s.sender.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return types.JID{}, fmt.Errorf("verify %s: %w", phone, err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, fmt.Errorf("number %s is not registered on WhatsApp", phone)
	}

	s.mu.Lock()
	s.jids[phone] = resp[0].JID
	s.mu.Unlock()
	return resp[0].JID, nil
}

func (s *Service) eventHandler(evt any) {
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(context.Background(), evt)
	case *events.Connected:
		s.log.Info().Msg("connected")
	case *events.Disconnected:
		s.log.Warn().Msg("disconnected")
	case *events.LoggedOut:
		s.log.Error().Msg("logged out, pair the device again")
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *events.Message) {
	if msg.Info.IsFromMe || msg.Info.IsGroup {
		return
	}
	text := messageText(msg.Message)
	if text == "" {
		return
	}
	sender := senderID(msg.Info.MessageSource)

	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h == nil {
		s.log.Info().Str("sender", sender).Msg("message ignored, no handler")
		return
	}
	if err := h(ctx, sender, text); err != nil {
		s.log.Error().Err(err).Str("sender", sender).Msg("handle message")
	}
}

func messageText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if t := m.GetConversation(); t != "" {
		return t
	}
	return m.GetExtendedTextMessage().GetText()
}

// senderID prefers the phone-number JID when the message is addressed by LID.
func senderID(src types.MessageSource) string {
	jid := src.Sender
	if jid.Server == types.HiddenUserServer && !src.SenderAlt.IsEmpty() {
		jid = src.SenderAlt
	}
	return jid.User
}

func phoneDigits(s string) string {
	s, _, _ = strings.Cut(s, "@")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
