package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

type fakeClient struct {
	registered map[string]bool
	lookups    int
	sent       map[string]string
	sendErr    error
}

func (f *fakeClient) IsOnWhatsApp(_ context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error) {
	f.lookups++
	var out []types.IsOnWhatsAppResponse
	for _, p := range phones {
		user := p[1:]
		out = append(out, types.IsOnWhatsAppResponse{
			Query: p,
			JID:   types.NewJID(user, types.DefaultUserServer),
			IsIn:  f.registered[user],
		})
	}
	return out, nil
}

func (f *fakeClient) SendMessage(_ context.Context, to types.JID, m *waE2E.Message, _ ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	if f.sendErr != nil {
		return whatsmeow.SendResponse{}, f.sendErr
	}
	f.sent[to.User] = m.GetConversation()
	return whatsmeow.SendResponse{ID: "msg-1"}, nil
}

func newFake() *fakeClient {
	return &fakeClient{registered: map[string]bool{"79123456789": true}, sent: map[string]string{}}
}

func TestDeliver(t *testing.T) {
	c := newFake()
	s := newService(c, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, s.Deliver(ctx, "+7 (912) 345-67-89", "hello"))
	require.NoError(t, s.Deliver(ctx, "79123456789", "again"))
	assert.Equal(t, "again", c.sent["79123456789"])
	assert.Equal(t, 1, c.lookups, "resolved JID is cached")
}

func TestDeliver_Failures(t *testing.T) {
	c := newFake()
	s := newService(c, zerolog.Nop())
	ctx := context.Background()

	assert.ErrorContains(t, s.Deliver(ctx, "waiter", "x"), "invalid recipient")
	assert.ErrorContains(t, s.Deliver(ctx, "79990000000", "x"), "not registered")

	c.sendErr = errors.New("timeout")
	assert.ErrorContains(t, s.Deliver(ctx, "79123456789", "x"), "timeout")
}

func textMessage(sender types.JID, text string) *events.Message {
	return &events.Message{
		Info:    types.MessageInfo{MessageSource: types.MessageSource{Sender: sender, Chat: sender}},
		Message: &waE2E.Message{Conversation: &text},
	}
}

func TestHandleMessage(t *testing.T) {
	s := newService(newFake(), zerolog.Nop())
	var got []string
	s.SetMessageHandler(func(_ context.Context, sender, text string) error {
		got = append(got, sender+": "+text)
		return nil
	})

	s.handleMessage(context.Background(), textMessage(types.NewJID("79123456789", types.DefaultUserServer), "/today"))

	own := textMessage(types.NewJID("79123456789", types.DefaultUserServer), "echo")
	own.Info.IsFromMe = true
	s.handleMessage(context.Background(), own)

	group := textMessage(types.NewJID("79123456789", types.DefaultUserServer), "hi all")
	group.Info.IsGroup = true
	s.handleMessage(context.Background(), group)

	empty := textMessage(types.NewJID("79123456789", types.DefaultUserServer), "")
	s.handleMessage(context.Background(), empty)

	assert.Equal(t, []string{"79123456789: /today"}, got)
}

func TestHandleMessage_NoHandler(t *testing.T) {
	s := newService(newFake(), zerolog.Nop())
	assert.NotPanics(t, func() {
		s.handleMessage(context.Background(), textMessage(types.NewJID("1", types.DefaultUserServer), "hi"))
	})
}

func TestMessageText(t *testing.T) {
	ext := "from a reply"
	assert.Equal(t, "from a reply", messageText(&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: &ext}}))
	assert.Equal(t, "", messageText(nil))
	assert.Equal(t, "", messageText(&waE2E.Message{}))
}

func TestSenderID(t *testing.T) {
	phone := types.NewJID("79123456789", types.DefaultUserServer)
	lid := types.NewJID("123456", types.HiddenUserServer)

	assert.Equal(t, "79123456789", senderID(types.MessageSource{Sender: phone}))
	assert.Equal(t, "79123456789", senderID(types.MessageSource{Sender: lid, SenderAlt: phone}))
	assert.Equal(t, "123456", senderID(types.MessageSource{Sender: lid}))
}

func TestPhoneDigits(t *testing.T) {
	assert.Equal(t, "79123456789", phoneDigits("+7 912 345-67-89"))
	assert.Equal(t, "79123456789", phoneDigits("79123456789@s.whatsapp.net"))
	assert.Equal(t, "", phoneDigits("waiter"))
}

func TestWriteQR(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQR(&buf, "2@pairing-code,abc"))
	assert.Contains(t, buf.String(), "Linked Devices")
	assert.Greater(t, buf.Len(), 200)
}
