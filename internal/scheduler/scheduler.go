package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"LevelSentinel/internal/collector"
	"LevelSentinel/internal/logger"
	"LevelSentinel/internal/model"
	"LevelSentinel/internal/notifier"
	"LevelSentinel/internal/recorder"
)

const historyLimit = 10

// Sender delivers a formatted message, retrying on failure.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the periodic analysis and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  Sender
	Recorder  recorder.Recorder
	Symbols   []string
	Ctx       context.Context

	mu   sync.RWMutex
	last map[string]*model.Analysis
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, tn Sender, rec recorder.Recorder, symbols []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  tn,
		Recorder:  rec,
		Symbols:   symbols,
		Ctx:       ctx,
		last:      make(map[string]*model.Analysis),
	}
}

// Register adds the analysis task on the given cron spec.
func (s *Scheduler) Register(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Infof("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Infof("scheduler stopped")
}

// RunNow executes the analysis task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

func (s *Scheduler) analysisTask() {
	logger.Infof("running analysis for %d symbols", len(s.Symbols))
	for _, symbol := range s.Symbols {
		if s.Ctx.Err() != nil {
			return
		}
		a, err := s.analyze(symbol)
		if err != nil {
			logger.Errorf("analysis %s: %v", symbol, err)
			s.trySend(fmt.Sprintf("❌ %s analysis failed: %v", symbol, err))
			continue
		}
		s.trySend(notifier.FormatLevelReport(a))
	}
}

// analyze collects, records and caches a fresh analysis of symbol.
func (s *Scheduler) analyze(symbol string) (*model.Analysis, error) {
	a, err := s.Collector.Collect(s.Ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordAnalysis(a); err != nil {
		logger.Errorf("record analysis %s: %v", a.Symbol, err)
	}

	s.mu.Lock()
	s.last[a.Symbol] = a
	s.mu.Unlock()
	return a, nil
}

// Last returns the most recent analysis of symbol, if any.
func (s *Scheduler) Last(symbol string) (*model.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.last[strings.ToUpper(symbol)]
	return a, ok
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return s.help()
	}
	symbol := ""
	if len(fields) > 1 {
		symbol = strings.ToUpper(fields[1])
	} else if len(s.Symbols) > 0 {
		symbol = s.Symbols[0]
	}

	switch strings.ToLower(fields[0]) {
	case "/levels":
		if symbol == "" {
			return s.help()
		}
		a, err := s.analyze(symbol)
		if err != nil {
			return fmt.Sprintf("❌ %s analysis failed: %v", symbol, err)
		}
		return notifier.FormatLevelReport(a)
	case "/diag":
		if symbol == "" {
			return s.help()
		}
		a, ok := s.Last(symbol)
		if !ok {
			var err error
			if a, err = s.analyze(symbol); err != nil {
				return fmt.Sprintf("❌ %s analysis failed: %v", symbol, err)
			}
		}
		return notifier.FormatDiagnostics(a)
	case "/history":
		if symbol == "" {
			return s.help()
		}
		runs, err := s.Recorder.RecentRuns(symbol, historyLimit)
		if err != nil {
			return fmt.Sprintf("❌ %s history failed: %v", symbol, err)
		}
		return notifier.FormatHistory(symbol, runs)
	case "/symbols":
		return "Tracked symbols: " + strings.Join(s.Symbols, ", ")
	default:
		return s.help()
	}
}

func (s *Scheduler) help() string {
	return "Available commands:\n" +
		"• /levels [SYMBOL] - fresh support/resistance levels\n" +
		"• /diag [SYMBOL] - per-method breakdown of the last run\n" +
		"• /history [SYMBOL] - recent recorded runs\n" +
		"• /symbols - tracked symbols"
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger.Errorf("send notification: %v", err)
	}
}
