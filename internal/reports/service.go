package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/scheduler-ai/internal/agent"
	"github.com/clinicdesk/scheduler-ai/internal/notify"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

const summarySystem = `You summarize clinic scheduling statistics for staff.
Rewrite the given facts as two or three plain sentences. Do not invent numbers.`

// HistoryLogger records every question and answer. Logging is best effort.
type HistoryLogger interface {
	Log(ctx context.Context, question, answer string) error
}

// Service answers staff questions, optionally delivering the answer over
// WhatsApp and summarizing with the oracle.
type Service struct {
	stats    *StatsStore
	oracle   agent.Oracle
	whatsapp *notify.WhatsAppSender
	history  HistoryLogger
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the report service. oracle, whatsapp and history may be
// nil.
func NewService(stats *StatsStore, oracle agent.Oracle, whatsapp *notify.WhatsAppSender, history HistoryLogger, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		stats:    stats,
		oracle:   oracle,
		whatsapp: whatsapp,
		history:  history,
		logger:   logger.Component("reports"),
		now:      time.Now,
	}
}

// WithClock fixes "today" for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Answer interprets a question, runs the matching query and phrases the
// result. toPhone, when set, also sends the answer over WhatsApp.
func (s *Service) Answer(ctx context.Context, question, toPhone string) (string, error) {
	query, ok := Interpret(question, s.now())
	if !ok {
		return "", fmt.Errorf("reports: could not interpret %q", question)
	}

	answer, err := s.run(ctx, query)
	if err != nil {
		return "", err
	}

	if s.history != nil {
		if err := s.history.Log(ctx, question, answer); err != nil {
			s.logger.Warn("history log failed", "error", err)
		}
	}
	if toPhone != "" && s.whatsapp != nil {
		if err := s.whatsapp.Send(ctx, toPhone, answer); err != nil {
			s.logger.Warn("whatsapp report delivery failed", "to", toPhone, "error", err)
		}
	}
	return answer, nil
}

func (s *Service) run(ctx context.Context, query Query) (string, error) {
	switch query.Kind {
	case KindCount:
		if query.FromDate != "" {
			count, err := s.stats.CountRange(ctx, query.FromDate, query.ToDate)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("There were %d appointments between %s and %s.", count, query.FromDate, query.ToDate), nil
		}
		date := query.Date
		if date == "" {
			date = s.now().Format("2006-01-02")
		}
		count, err := s.stats.CountOnDate(ctx, date)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("There are %d appointments on %s.", count, date), nil

	case KindTimes:
		times, err := s.stats.TimesOnDate(ctx, query.Date)
		if err != nil {
			return "", err
		}
		if len(times) == 0 {
			return fmt.Sprintf("There are no appointments on %s.", query.Date), nil
		}
		return fmt.Sprintf("Appointments on %s: %s.", query.Date, strings.Join(times, ", ")), nil

	case KindSymptom:
		count, err := s.stats.CountSymptom(ctx, query.Keyword, query.FromDate, query.ToDate)
		if err != nil {
			return "", err
		}
		if query.FromDate != "" {
			return fmt.Sprintf("%d appointments mention %q between %s and %s.", count, query.Keyword, query.FromDate, query.ToDate), nil
		}
		return fmt.Sprintf("%d appointments mention %q.", count, query.Keyword), nil

	case KindBusiestDay:
		date, count, err := s.stats.BusiestDay(ctx)
		if err != nil {
			return "", err
		}
		if date == "" {
			return "The appointment book is empty.", nil
		}
		return fmt.Sprintf("The busiest day is %s with %d appointments.", date, count), nil
	}
	return "", fmt.Errorf("reports: unknown query kind %q", query.Kind)
}

// Summarize asks the oracle to phrase a batch of facts for staff. Without an
// oracle the facts are returned joined as-is.
func (s *Service) Summarize(ctx context.Context, facts []string) string {
	joined := strings.Join(facts, " ")
	if s.oracle == nil || len(facts) == 0 {
		return joined
	}
	summary, err := s.oracle.Infer(ctx, summarySystem, joined)
	if err != nil || strings.TrimSpace(summary) == "" {
		s.logger.Warn("summary oracle failed, returning raw facts", "error", err)
		return joined
	}
	return summary
}
