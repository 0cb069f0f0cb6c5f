// Package onebot connects the bot to a OneBot v11 implementation (QQ)
// over a forward websocket.
package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/core/ports"
	"github.com/vibin/jx3-item-bot/internal/logger"
	"github.com/vibin/jx3-item-bot/internal/metrics"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
	handleTimeout    = 30 * time.Second
	dedupTTL         = 10 * time.Minute
)

// Adapter receives OneBot message events and answers them
type Adapter struct {
	config  *config.OneBotConfig
	handler ports.MessageHandler
	log     logger.Logger
	limiter *rate.Limiter
	dialer  *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	seen    sync.Map
}

// NewAdapter creates a new OneBot adapter
func NewAdapter(handler ports.MessageHandler, cfg *config.Config, log logger.Logger) *Adapter {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.OneBot.RepliesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OneBot.RepliesPerSec), max(cfg.OneBot.ReplyBurst, 1))
	}

	return &Adapter{
		config:  &cfg.OneBot,
		handler: handler,
		log:     log.WithField("channel", string(domain.ChannelOneBot)),
		limiter: limiter,
		dialer:  &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// IsConnected reports whether the websocket is up
func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// Start connects and serves events until ctx is done, reconnecting
// after every dropped connection
func (a *Adapter) Start(ctx context.Context) error {
	if a.config.WSURL == "" {
		return errors.New("onebot ws_url not configured")
	}

	interval := time.Duration(a.config.ReconnectIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	a.log.Info("OneBot adapter is starting", "ws_url", a.config.WSURL)

	for {
		conn, err := a.connect(ctx)
		if err != nil {
			a.log.Warn("OneBot connection failed", "error", err, "retry_in", interval.String())
		} else {
			a.listen(ctx, conn)
		}

		select {
		case <-ctx.Done():
			a.log.Info("OneBot adapter stopping")
			return nil
		case <-time.After(interval):
		}
	}
}

// Stop closes the current connection
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

func (a *Adapter) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if a.config.AccessToken != "" {
		header.Set("Authorization", "Bearer "+a.config.AccessToken)
	}

	conn, _, err := a.dialer.DialContext(ctx, a.config.WSURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", a.config.WSURL, err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	a.log.Info("OneBot websocket connected")
	return conn, nil
}

// listen reads events until the connection fails or ctx is done
func (a *Adapter) listen(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	go a.pinger(conn, done)

	defer func() {
		a.mu.Lock()
		if a.conn == conn {
			_ = a.conn.Close()
			a.conn = nil
		}
		a.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				a.log.Error("OneBot websocket read error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var evt rawEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			a.log.Warn("Failed to decode OneBot event", "error", err)
			continue
		}

		a.handleEvent(ctx, &evt)
	}
}

func (a *Adapter) pinger(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := a.write(conn, websocket.PingMessage, nil); err != nil {
				a.log.Debug("OneBot ping failed", "error", err)
				return
			}
		}
	}
}

func (a *Adapter) write(conn *websocket.Conn, messageType int, data []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return conn.WriteMessage(messageType, data)
}

func (a *Adapter) handleEvent(ctx context.Context, evt *rawEvent) {
	if evt.Echo != "" || evt.Status != "" {
		if evt.Status == "failed" || evt.RetCode != 0 {
			a.log.Error("OneBot action failed", "echo", evt.Echo, "retcode", evt.RetCode, "wording", evt.Wording)
		}
		return
	}

	switch evt.PostType {
	case "message":
		a.handleMessage(ctx, evt)
	case "meta_event":
		if evt.MetaEventType == "lifecycle" {
			a.log.Info("OneBot lifecycle event")
		}
	default:
		a.log.Debug("Ignoring OneBot event", "post_type", evt.PostType)
	}
}

func (a *Adapter) handleMessage(ctx context.Context, evt *rawEvent) {
	userID, err := parseID(evt.UserID)
	if err != nil {
		a.log.Warn("Failed to parse user_id", "error", err)
		return
	}
	selfID, _ := parseID(evt.SelfID)
	if selfID != 0 && userID == selfID {
		return
	}
	groupID, _ := parseID(evt.GroupID)

	messageID := strings.Trim(string(evt.MessageID), `"`)
	if messageID != "" && a.isDuplicate(messageID) {
		return
	}

	text := messageText(evt.Message, evt.RawMessage)
	if strings.TrimSpace(text) == "" {
		return
	}

	msg := domain.IncomingMessage{
		Channel:    domain.ChannelOneBot,
		ChatID:     chatID(evt.MessageType, groupID, userID),
		SenderID:   strconv.FormatInt(userID, 10),
		SenderName: evt.Sender.name(),
		Content:    text,
	}

	go a.processAndReply(ctx, msg, messageID)
}

// isDuplicate records messageID and reports whether it was seen recently
func (a *Adapter) isDuplicate(messageID string) bool {
	now := time.Now()
	if prev, loaded := a.seen.LoadOrStore(messageID, now); loaded {
		if now.Sub(prev.(time.Time)) < dedupTTL {
			return true
		}
		a.seen.Store(messageID, now)
	}

	a.seen.Range(func(k, v any) bool {
		if now.Sub(v.(time.Time)) >= dedupTTL {
			a.seen.Delete(k)
		}
		return true
	})
	return false
}

func (a *Adapter) processAndReply(ctx context.Context, msg domain.IncomingMessage, replyTo string) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	reply, ok := a.handler.HandleMessage(ctx, msg)
	if !ok {
		return
	}

	err := a.send(ctx, msg.ChatID, reply.Text, replyTo)
	metrics.RecordReply(string(domain.ChannelOneBot), err == nil)
	if err != nil {
		a.log.Error("Failed to send OneBot reply", "chat_id", msg.ChatID, "error", err)
		return
	}
	a.log.Info("OneBot reply sent", "chat_id", msg.ChatID, "response_length", len(reply.Text))
}

// send writes on the connection that is current when the reply is ready
func (a *Adapter) send(ctx context.Context, chat, text, replyTo string) error {
	action, params, err := sendRequest(chat, text, replyTo)
	if err != nil {
		return err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	data, err := json.Marshal(apiRequest{Action: action, Params: params, Echo: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("failed to marshal OneBot request: %w", err)
	}

	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return errors.New("onebot websocket not connected")
	}

	return a.write(conn, websocket.TextMessage, data)
}
