package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/adapters/secondary/jx3box"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/logger"
)

// apiStub serves canned JX3Box responses and records every query
type apiStub struct {
	mu      sync.Mutex
	queries []url.Values
	status  int
	body    string
	delay   time.Duration
}

func (a *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.queries = append(a.queries, r.URL.Query())
	status, body, delay := a.status, a.body, a.delay
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (a *apiStub) calls() []url.Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]url.Values(nil), a.queries...)
}

func newServiceWithAPI(t *testing.T, body string, log logger.Logger) (*ItemService, *apiStub) {
	t.Helper()
	stub := &apiStub{status: http.StatusOK, body: body}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig().ItemSearch
	cfg.SearchURL = server.URL + "/api/wiki/item/search"
	cfg.TimeoutSeconds = 1
	if log == nil {
		log = logger.Discard()
	}
	return NewItemService(jx3box.NewClient(&cfg, log), &cfg, log), stub
}

func message(content string) domain.IncomingMessage {
	return domain.IncomingMessage{Channel: domain.ChannelHTTP, ChatID: "c1", SenderName: "阿宝", Content: content}
}

func TestHandleMessageIgnoresUntriggered(t *testing.T) {
	svc, stub := newServiceWithAPI(t, `{"code":200,"data":{"list":[]}}`, nil)

	for _, content := range []string{"", "hello", "剑网三 沧海间", "JX3物品 沧海间", "有人知道剑网3物品"} {
		_, replied := svc.HandleMessage(context.Background(), message(content))
		assert.False(t, replied, content)
	}
	assert.Empty(t, stub.calls())
}

func TestHandleMessageUsageHint(t *testing.T) {
	var buf bytes.Buffer
	svc, stub := newServiceWithAPI(t, `{"code":200,"data":{"list":[]}}`, logger.New(slog.LevelDebug, &buf))

	for _, content := range []string{"剑网3物品", "jx3物品", "/剑网3物品 "} {
		reply, replied := svc.HandleMessage(context.Background(), message(content))
		require.True(t, replied, content)
		assert.Equal(t, "请提供您要查询的物品名称。例如：/剑网3物品 沧海间", reply.Text)
	}
	assert.Empty(t, stub.calls())
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "阿宝")
}

func TestHandleMessageSendsOneRequest(t *testing.T) {
	svc, stub := newServiceWithAPI(t, `{"code":200,"data":{"list":[]}}`, nil)

	_, replied := svc.HandleMessage(context.Background(), message("剑网3物品 沧海间"))
	require.True(t, replied)

	calls := stub.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "沧海间", calls[0].Get("keyword"))
	assert.Equal(t, "1", calls[0].Get("page"))
	assert.Equal(t, "5", calls[0].Get("per"))
}

func TestHandleMessageNoItems(t *testing.T) {
	svc, _ := newServiceWithAPI(t, `{"code":200,"data":{"list":[]}}`, nil)

	reply, replied := svc.HandleMessage(context.Background(), message("jx3物品 不存在的东西"))
	require.True(t, replied)
	assert.Equal(t, "未找到与 '不存在的东西' 相关的物品。", reply.Text)
}

func TestHandleMessageFoundItems(t *testing.T) {
	var buf bytes.Buffer
	svc, _ := newServiceWithAPI(t, `{"code":200,"data":{"list":[{"id":"123","name":"N","desc":"D"}]}}`,
		logger.New(slog.LevelInfo, &buf))

	reply, replied := svc.HandleMessage(context.Background(), message("剑网3物品 N"))
	require.True(t, replied)
	assert.Contains(t, reply.Text, "N")
	assert.Contains(t, reply.Text, "D")
	assert.Contains(t, reply.Text, "https://www.jx3box.com/item/123")
	assert.Contains(t, buf.String(), `"matches":1`)
}

func TestHandleMessagePlaceholders(t *testing.T) {
	svc, _ := newServiceWithAPI(t, `{"code":200,"data":{"list":[{"id":"9"}]}}`, nil)

	reply, _ := svc.HandleMessage(context.Background(), message("剑网3物品 x"))
	assert.Contains(t, reply.Text, "名称: 未知名称")
	assert.Contains(t, reply.Text, "描述: 暂无描述")
	assert.NotContains(t, reply.Text, "名称: \n")
}

func TestHandleMessageAPIError(t *testing.T) {
	var buf bytes.Buffer
	svc, _ := newServiceWithAPI(t, `{"code":500,"msg":"bad keyword"}`, logger.New(slog.LevelInfo, &buf))

	reply, replied := svc.HandleMessage(context.Background(), message("剑网3物品 x"))
	require.True(t, replied)
	assert.Contains(t, reply.Text, "bad keyword")

	logs := buf.String()
	assert.Contains(t, logs, `"level":"ERROR"`)
	assert.Contains(t, logs, `"kind":"api_error"`)
	assert.Contains(t, logs, "bad keyword")
}

func TestHandleMessageTimeout(t *testing.T) {
	svc, stub := newServiceWithAPI(t, `{"code":200,"data":{"list":[]}}`, nil)
	stub.mu.Lock()
	stub.delay = 5 * time.Second
	stub.mu.Unlock()

	var reply domain.Reply
	var replied bool
	require.NotPanics(t, func() {
		reply, replied = svc.HandleMessage(context.Background(), message("剑网3物品 慢"))
	})
	require.True(t, replied)
	assert.Contains(t, reply.Text, "查询物品时发生网络错误，请稍后再试。错误信息: ")
}

func TestHandleMessageIsIdempotent(t *testing.T) {
	svc, _ := newServiceWithAPI(t, `{"code":200,"data":{"list":[{"id":1,"name":"沧海间","desc":"一件衣服"},{"id":2}]}}`, nil)

	first, _ := svc.HandleMessage(context.Background(), message("剑网3物品 沧海间"))
	second, _ := svc.HandleMessage(context.Background(), message("剑网3物品 沧海间"))
	assert.Equal(t, []byte(first.Text), []byte(second.Text))
}

type panickingSearch struct{}

func (panickingSearch) SearchItems(ctx context.Context, keyword string) domain.SearchOutcome {
	panic("kaboom")
}

type fixedSearch struct {
	outcome domain.SearchOutcome
}

func (f fixedSearch) SearchItems(ctx context.Context, keyword string) domain.SearchOutcome {
	return f.outcome
}

func TestHandleMessageRecoversPanic(t *testing.T) {
	cfg := config.DefaultConfig().ItemSearch
	svc := NewItemService(panickingSearch{}, &cfg, logger.Discard())

	reply, replied := svc.HandleMessage(context.Background(), message("剑网3物品 x"))
	require.True(t, replied)
	assert.Equal(t, "查询物品时发生内部错误，请联系管理员。", reply.Text)
}

func TestHandleMessageUnexpectedOutcome(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().ItemSearch
	svc := NewItemService(fixedSearch{domain.UnexpectedFailure(errors.New("missing data"))}, &cfg, logger.New(slog.LevelInfo, &buf))

	reply, _ := svc.HandleMessage(context.Background(), message("剑网3物品 x"))
	assert.Equal(t, "查询物品时发生内部错误，请联系管理员。", reply.Text)
	assert.Contains(t, buf.String(), "missing data")
}

func TestLifecycleHooks(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().ItemSearch
	svc := NewItemService(fixedSearch{}, &cfg, logger.New(slog.LevelInfo, &buf))

	require.NoError(t, svc.Initialize(context.Background()))
	require.NoError(t, svc.Terminate(context.Background()))
	assert.Contains(t, buf.String(), "jx3_item_search")
	assert.Contains(t, buf.String(), "1.0.0")
}

func TestSearchPassesThrough(t *testing.T) {
	cfg := config.DefaultConfig().ItemSearch
	want := domain.Success([]domain.Item{{ID: "1", Name: "a"}})
	svc := NewItemService(fixedSearch{want}, &cfg, logger.Discard())

	assert.Equal(t, want, svc.Search(context.Background(), "a"))
}
