package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/core/ports"
	"github.com/vibin/jx3-item-bot/internal/logger"
	"github.com/vibin/jx3-item-bot/internal/metrics"

	_ "github.com/mattn/go-sqlite3"
)

const (
	handleTimeout = 30 * time.Second
	sendTimeout   = 30 * time.Second
	dedupTTL      = 10 * time.Minute
)

// WhatsAppAdapter implements the WhatsApp adapter and the ports.WhatsAppPort interface
type WhatsAppAdapter struct {
	client        *whatsmeow.Client
	store         *store.Device
	storeDir      string
	handler       ports.MessageHandler
	log           logger.Logger
	config        *config.WhatsAppConfig
	mutex         sync.RWMutex
	limiter       *rate.Limiter
	formatter     *WhatsAppFormatter
	processedMsgs sync.Map
}

// NewWhatsAppAdapter creates a new WhatsApp adapter
func NewWhatsAppAdapter(handler ports.MessageHandler, cfg *config.Config, log logger.Logger) (*WhatsAppAdapter, error) {
	if err := os.MkdirAll(cfg.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp store directory: %w", err)
	}

	// the adapter owns its copy; the admin API keeps the shared config in sync
	waCfg := cfg.WhatsApp
	waCfg.AllowedGroups = slices.Clone(cfg.WhatsApp.AllowedGroups)

	return &WhatsAppAdapter{
		storeDir:  cfg.WhatsApp.StoreDir,
		handler:   handler,
		log:       log.WithField("channel", string(domain.ChannelWhatsApp)),
		config:    &waCfg,
		limiter:   newLimiter(cfg.WhatsApp.RepliesPerSec, cfg.WhatsApp.ReplyBurst),
		formatter: NewWhatsAppFormatter(),
	}, nil
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Connect establishes the connection to WhatsApp
func (a *WhatsAppAdapter) Connect(ctx context.Context) error {
	dbLog := waLog.Stdout("Database", "WARN", true)
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(a.storeDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, dbLog)
	if err != nil {
		return fmt.Errorf("failed to initialize WhatsApp database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device store: %w", err)
	}
	a.store = deviceStore

	clientLog := waLog.Stdout("Client", "INFO", true)
	a.client = whatsmeow.NewClient(deviceStore, clientLog)
	a.client.AddEventHandler(a.eventHandler)

	if a.client.Store.ID == nil {
		// No session yet, pair by QR code
		qrChan, err := a.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("error getting QR channel: %w", err)
		}

		if err := a.client.Connect(); err != nil {
			return fmt.Errorf("error connecting to WhatsApp: %w", err)
		}

		for evt := range qrChan {
			if evt.Event == "code" {
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				a.log.Info("Scan the QR code with your WhatsApp app")
			} else {
				a.log.Info("QR channel event", "event", evt.Event)
			}
		}
		return nil
	}

	if err := a.client.Connect(); err != nil {
		return fmt.Errorf("error connecting to WhatsApp: %w", err)
	}
	a.log.Info("Connected to WhatsApp")

	return nil
}

// Disconnect closes the connection to WhatsApp
func (a *WhatsAppAdapter) Disconnect() error {
	if a.client != nil {
		a.client.Disconnect()
	}
	return nil
}

// IsConnected checks if the client is connected
func (a *WhatsAppAdapter) IsConnected() bool {
	return a.client != nil && a.client.IsConnected()
}

// Start connects if needed and blocks until ctx is done
func (a *WhatsAppAdapter) Start(ctx context.Context) error {
	a.log.Info("WhatsApp adapter is starting")

	if !a.IsConnected() {
		if err := a.Connect(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	a.log.Info("WhatsApp adapter stopping")
	return nil
}

// eventHandler handles WhatsApp events
func (a *WhatsAppAdapter) eventHandler(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		a.handleMessage(evt)
	case *events.Connected:
		a.log.Info("WhatsApp connected")
	case *events.Disconnected:
		a.log.Info("WhatsApp disconnected")
	case *events.LoggedOut:
		a.log.Warn("WhatsApp logged out")
		if a.store != nil {
			if err := a.store.Delete(context.Background()); err != nil {
				a.log.Error("Failed to delete device store on logout", "error", err)
			}
		}
	}
}

// handleMessage filters incoming WhatsApp messages and hands the
// remaining ones to the message handler
func (a *WhatsAppAdapter) handleMessage(evt *events.Message) {
	if evt.Info.IsFromMe {
		return
	}

	if messageID := string(evt.Info.ID); messageID != "" && a.isDuplicate(messageID, time.Now()) {
		a.log.Debug("Skipping already processed message", "message_id", messageID)
		return
	}

	chatJID := evt.Info.Chat.String()
	if evt.Info.IsGroup {
		if !a.isGroupAllowed(chatJID) {
			return
		}
	} else if !a.config.AllowDirect {
		return
	}

	text := getMessageText(evt.Message)
	if strings.TrimSpace(text) == "" {
		return
	}

	msg := domain.IncomingMessage{
		Channel:    domain.ChannelWhatsApp,
		ChatID:     chatJID,
		SenderID:   evt.Info.Sender.String(),
		SenderName: evt.Info.PushName,
		Content:    text,
	}

	go a.processAndReply(msg, evt)
}

// isDuplicate records messageID and reports whether it was seen within
// dedupTTL. Expired ids are swept on every call.
func (a *WhatsAppAdapter) isDuplicate(messageID string, now time.Time) bool {
	duplicate := false
	if prev, loaded := a.processedMsgs.LoadOrStore(messageID, now); loaded {
		if now.Sub(prev.(time.Time)) < dedupTTL {
			duplicate = true
		} else {
			a.processedMsgs.Store(messageID, now)
		}
	}

	a.processedMsgs.Range(func(k, v any) bool {
		if now.Sub(v.(time.Time)) >= dedupTTL {
			a.processedMsgs.Delete(k)
		}
		return true
	})
	return duplicate
}

// processAndReply runs the handler and sends its reply, if any
func (a *WhatsAppAdapter) processAndReply(msg domain.IncomingMessage, evt *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	reply, ok := a.handler.HandleMessage(ctx, msg)
	if !ok {
		return
	}

	a.sendReply(ctx, reply.Text, evt)
}

// isGroupAllowed checks if the group is in the allowed list
func (a *WhatsAppAdapter) isGroupAllowed(groupJID string) bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	for _, allowed := range a.config.AllowedGroups {
		if allowed == "*" || (allowed != "" && strings.Contains(groupJID, allowed)) {
			return true
		}
	}

	return false
}

// getMessageText extracts text from the message
func getMessageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if msg.GetConversation() != "" {
		return msg.GetConversation()
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

// buildReply creates a text message quoting the original
func buildReply(text string, evt *events.Message) *waE2E.Message {
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:    proto.String(evt.Info.ID),
				Participant: proto.String(evt.Info.Sender.String()),
				QuotedMessage: &waE2E.Message{
					Conversation: proto.String(getMessageText(evt.Message)),
				},
			},
		},
	}
}

// sendReply sends a reply to the message, respecting rate limits
func (a *WhatsAppAdapter) sendReply(ctx context.Context, response string, evt *events.Message) {
	if !a.IsConnected() {
		a.log.Error("WhatsApp client not connected")
		metrics.RecordReply(string(domain.ChannelWhatsApp), false)
		return
	}

	if err := a.limiter.Wait(ctx); err != nil {
		a.log.Error("Rate limiter error", "error", err)
		metrics.RecordReply(string(domain.ChannelWhatsApp), false)
		return
	}

	formatted := a.formatter.Format(response)

	a.log.Info("Sending WhatsApp reply",
		"chat_jid", evt.Info.Chat.String(),
		"response_length", len(formatted),
		"sender", evt.Info.Sender.String())

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := a.client.SendMessage(sendCtx, evt.Info.Chat, buildReply(formatted, evt)); err != nil {
		a.log.Error("Failed to send WhatsApp reply", "error", err)
		metrics.RecordReply(string(domain.ChannelWhatsApp), false)
		return
	}

	metrics.RecordReply(string(domain.ChannelWhatsApp), true)
}
