package run

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"crux/internal/assistant"
)

// metrics implements assistant.Observer with plain atomic counters
// exposed in Prometheus text format.
type metrics struct {
	heard    atomic.Int64
	commands atomic.Int64
	queries  atomic.Int64
	failures atomic.Int64
	spoken   atomic.Int64
}

func (m *metrics) reset() {
	m.heard.Store(0)
	m.commands.Store(0)
	m.queries.Store(0)
	m.failures.Store(0)
	m.spoken.Store(0)
}

func (m *metrics) UtteranceHeard(assistant.Origin) { m.heard.Add(1) }
func (m *metrics) CommandHandled()                 { m.commands.Add(1) }
func (m *metrics) QuerySent()                      { m.queries.Add(1) }
func (m *metrics) QueryFailed()                    { m.failures.Add(1) }
func (m *metrics) ResponseSpoken()                 { m.spoken.Add(1) }

func (s *Server) metricsServe(ctxDone <-chan struct{}, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "crux_utterances_total %d\n", s.metrics.heard.Load())
		fmt.Fprintf(w, "crux_commands_handled_total %d\n", s.metrics.commands.Load())
		fmt.Fprintf(w, "crux_gpt_queries_total %d\n", s.metrics.queries.Load())
		fmt.Fprintf(w, "crux_gpt_failures_total %d\n", s.metrics.failures.Load())
		fmt.Fprintf(w, "crux_responses_spoken_total %d\n", s.metrics.spoken.Load())
	})
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		<-ctxDone
		_ = server.Close()
	}()
	s.logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Warnf("metrics server: %v", err)
	}
}
