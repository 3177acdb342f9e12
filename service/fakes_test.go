package service

import (
	"context"
	"sync"
	"time"

	"helios-backend/ai"
)

// scriptedReply is what the fake returns for one model.
type scriptedReply struct {
	text  string
	err   error
	delay time.Duration
}

// scriptedGenerator answers per model and records the call order.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[string]scriptedReply
	calls   []string
}

func newScriptedGenerator(replies map[string]scriptedReply) *scriptedGenerator {
	return &scriptedGenerator{replies: replies}
}

func (g *scriptedGenerator) Generate(ctx context.Context, _ string, modelID string, _ ai.GenerateOptions) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, modelID)
	r, ok := g.replies[modelID]
	g.mu.Unlock()

	if !ok {
		return "", ai.ErrUnknownProvider
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.text, r.err
}

func (g *scriptedGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// recordingSleeper returns immediately and remembers requested delays.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

const scenarioAJSON = `{
  "contractType": "Service Agreement",
  "effectiveDate": "2026-01-01",
  "noticePeriodDays": 30,
  "terminationClauseReference": "Clause 12",
  "parties": ["Acme Corp", "Globex Ltd"],
  "alerts": ["Automatic renewal", "Late payment penalty of 5% monthly"],
  "riskScore": 8,
  "abusiveClauses": ["Unilateral price changes without notice"]
}`
