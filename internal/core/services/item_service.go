package services

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/core/ports"
	"github.com/vibin/jx3-item-bot/internal/logger"
	"github.com/vibin/jx3-item-bot/internal/metrics"
	"github.com/vibin/jx3-item-bot/internal/tracing"
)

// ItemService answers chat messages that ask for a JX3 item
type ItemService struct {
	search    ports.ItemSearchPort
	detector  *TriggerDetector
	formatter *ReplyFormatter
	logger    logger.Logger
}

// NewItemService creates a new ItemService
func NewItemService(search ports.ItemSearchPort, cfg *config.ItemSearchConfig, log logger.Logger) *ItemService {
	return &ItemService{
		search:    search,
		detector:  NewTriggerDetector(cfg.PrimaryTrigger, cfg.AliasTrigger),
		formatter: NewReplyFormatter(cfg.DetailBaseURL, cfg.PrimaryTrigger),
		logger:    log.WithField("component", "item_service"),
	}
}

// Initialize is called once before the first message
func (s *ItemService) Initialize(ctx context.Context) error {
	s.logger.Info("Item search plugin initialized",
		"plugin", PluginInfo.Name,
		"version", PluginInfo.Version,
		"author", PluginInfo.Author,
		"triggers", s.detector.Phrases())
	return nil
}

// Terminate is called once on shutdown
func (s *ItemService) Terminate(ctx context.Context) error {
	s.logger.Info("Item search plugin terminated", "plugin", PluginInfo.Name)
	return nil
}

// Search runs a search without any chat formatting
func (s *ItemService) Search(ctx context.Context, keyword string) domain.SearchOutcome {
	return s.search.SearchItems(ctx, keyword)
}

// HandleMessage returns the reply for msg, if it deserves one
func (s *ItemService) HandleMessage(ctx context.Context, msg domain.IncomingMessage) (reply domain.Reply, replied bool) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"channel": string(msg.Channel),
		"chat_id": msg.ChatID,
		"sender":  msg.Sender(),
	})

	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecovered.Inc()
			metrics.RecordMessage(string(msg.Channel), string(domain.OutcomeUnexpectedError))
			log.Error("Panic while handling message",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			reply, replied = domain.Reply{Text: internalErrText}, true
		}
	}()

	trigger := s.detector.Detect(msg.Content)
	if !trigger.Matched {
		metrics.RecordMessage(string(msg.Channel), "ignored")
		return domain.Reply{}, false
	}

	if trigger.Term == "" {
		if !trigger.UsageHint {
			metrics.RecordMessage(string(msg.Channel), "ignored")
			return domain.Reply{}, false
		}
		log.Warn("Trigger sent without an item name", "trigger", trigger.Phrase)
		metrics.RecordMessage(string(msg.Channel), "usage_hint")
		return domain.Reply{Text: s.formatter.UsageHint()}, true
	}

	ctx, span := tracing.StartSpan(ctx, "ItemService.HandleMessage")
	defer span.End()

	log.Info("Item query received", "keyword", trigger.Term)

	outcome := s.search.SearchItems(ctx, trigger.Term)
	s.logOutcome(log, trigger.Term, outcome)
	tracing.AddSearchAttributes(span, trigger.Term, string(outcome.Kind), len(outcome.Items))
	metrics.RecordMessage(string(msg.Channel), string(outcome.Kind))

	return domain.Reply{Text: s.formatter.FormatOutcome(trigger.Term, outcome)}, true
}

func (s *ItemService) logOutcome(log logger.Logger, term string, outcome domain.SearchOutcome) {
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		log.Info("Item search finished", "keyword", term, "matches", len(outcome.Items))
	case domain.OutcomeAPIError:
		log.Error("Item search API returned an error", "keyword", term, "kind", outcome.Kind, "message", outcome.Message)
	case domain.OutcomeNetworkError:
		log.Error("Network error during item search", "keyword", term, "kind", outcome.Kind, "error", outcome.Detail())
	default:
		log.Error("Unexpected error during item search", "keyword", term, "kind", outcome.Kind, "error", fmt.Sprintf("%+v", outcome.Err))
	}
}
