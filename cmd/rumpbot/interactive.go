package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rumpbot/rumpbot/internal/control"
	"github.com/rumpbot/rumpbot/internal/orchestrator"
	"github.com/rumpbot/rumpbot/internal/tui"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// session drives the interactive chat: it bridges the TUI's messages
// to the chat agent and at most one orchestration at a time.
type session struct {
	app     *app
	program *tea.Program
	emitter *orchestrator.Emitter
	chatID  string
	dir     string

	mu        sync.Mutex
	current   *orchestrator.Orchestrator
	cancelRun context.CancelFunc
}

// runInteractive launches the chat surface.
func runInteractive() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := &session{
		app:     a,
		emitter: orchestrator.NewEmitter(64),
		chatID:  flagChatID,
		dir:     workDir(),
	}

	// The filter lets the composition root see the TUI's outbound
	// messages without the model knowing about the runtime.
	program, _ := tui.NewChatProgram(
		tea.WithFilter(func(_ tea.Model, msg tea.Msg) tea.Msg {
			switch msg := msg.(type) {
			case tui.SubmitMsg:
				go s.handleSubmit(msg.Text)
			case tui.KillMsg:
				go s.handleKill(msg.WorkerNumber)
			case tui.RetryMsg:
				go s.handleRetry(msg.WorkerNumber)
			}
			return msg
		}))
	s.program = program

	// Status updates flow through a buffered emitter so a busy terminal
	// never stalls the orchestration. The drain lives for the session.
	go func() {
		for update := range s.emitter.Updates() {
			program.Send(tui.StatusMsg{Update: update})
		}
	}()

	// Signal files let a second terminal control this run.
	watcher, err := control.NewWatcher(a.cfg.SignalsDir(), func(sig control.Signal) {
		switch sig.Kind {
		case "kill":
			s.handleKill(sig.WorkerNumber)
		case "retry":
			s.handleRetry(sig.WorkerNumber)
		}
	})
	if err != nil {
		return fmt.Errorf("start signal watcher: %w", err)
	}
	defer watcher.Close()

	_, err = program.Run()
	return err
}

// handleSubmit runs one chat turn and, when the reply carries a work
// request, the orchestration that follows.
func (s *session) handleSubmit(text string) {
	s.program.Send(tui.BusyMsg{Busy: true})

	reply, err := s.app.chatAgent().HandleMessage(context.Background(), s.chatID, text, s.dir)
	if err != nil {
		s.program.Send(tui.ErrorMsg{Err: err})
		return
	}
	s.program.Send(tui.BotMessageMsg{Text: reply.Text})

	if reply.WorkRequest == nil {
		return
	}
	s.runWork(*reply.WorkRequest)
}

// runWork executes one orchestration, rejecting overlap for the chat.
func (s *session) runWork(req models.WorkRequest) {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		s.program.Send(tui.StatusMsg{Update: models.StatusUpdate{
			Type:      models.UpdateTypeStatus,
			Message:   "A run is already in progress; finish or /kill it first.",
			Important: true,
		}})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	orch := s.app.newOrchestrator(s.chatID, s.dir, s.emitter.StatusFunc())
	s.current = orch
	s.cancelRun = cancel
	s.mu.Unlock()

	s.program.Send(tui.BusyMsg{Busy: true})
	summary, err := orch.Execute(ctx, req)

	s.mu.Lock()
	s.current = nil
	s.cancelRun = nil
	s.mu.Unlock()
	cancel()

	if err != nil {
		s.program.Send(tui.ErrorMsg{Err: err})
		return
	}
	text := summary.Summary
	if summary.NeedsRestart {
		text += "\n\nThis work looks like it needs a service restart."
	}
	s.program.Send(tui.BotMessageMsg{Text: text})
}

// handleKill cancels the whole run (n == 0) or one worker.
func (s *session) handleKill(n int) {
	s.mu.Lock()
	orch := s.current
	cancel := s.cancelRun
	s.mu.Unlock()

	if orch == nil {
		s.program.Send(tui.StatusMsg{Update: models.StatusUpdate{
			Type: models.UpdateTypeStatus, Message: "Nothing is running.", Important: true,
		}})
		return
	}

	if n == 0 {
		cancel()
		return
	}
	if !s.app.registry.CancelWorker(orch.ID(), n) {
		s.program.Send(tui.StatusMsg{Update: models.StatusUpdate{
			Type:      models.UpdateTypeStatus,
			Message:   fmt.Sprintf("No running worker #%d.", n),
			Important: true,
		}})
	}
}

// handleRetry re-runs one worker of the active orchestration.
func (s *session) handleRetry(n int) {
	s.mu.Lock()
	orch := s.current
	s.mu.Unlock()

	if orch == nil {
		s.program.Send(tui.StatusMsg{Update: models.StatusUpdate{
			Type: models.UpdateTypeStatus, Message: "Nothing is running.", Important: true,
		}})
		return
	}
	if err := orch.RetryWorker(n); err != nil {
		s.program.Send(tui.StatusMsg{Update: models.StatusUpdate{
			Type:      models.UpdateTypeStatus,
			Message:   fmt.Sprintf("Retry failed: %v", err),
			Important: true,
		}})
	}
}
