// Package client drives the setup and query flows of a chat frontend over
// the realtime channel. Presentation is delegated to a View.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github/itish2003/vaultchat/graph"
	"github/itish2003/vaultchat/models"
	"github/itish2003/vaultchat/realtime"
)

// ErrSetupPending is returned when setup is submitted while the control is disabled.
var ErrSetupPending = errors.New("setup already in progress")

// View is the presentation surface the flows act on.
type View interface {
	ShowSetup(visible bool)
	ShowChat(visible bool)
	// SetSetupBusy disables the setup control and relabels it while a request is in flight.
	SetSetupBusy(busy bool)
	// Alert is blocking in a browser; the flow does not depend on that.
	Alert(message string)
	SetLoading(visible bool)
	SetResponse(html string)
	ShowError(message string)
	ShowGraph(visible bool)
	ClearInput()
}

// Channel is the part of a realtime socket the session needs.
type Channel interface {
	Emit(event, id string, payload any) error
	On(event string, h realtime.Handler)
	OnDisconnect(fn func())
}

// Session holds the transient UI state of one page.
type Session struct {
	mu    sync.Mutex
	ch    Channel
	view  View
	graph *graph.Renderer
	newID func() string

	pendingSetup string
	pendingQuery string
	initialized  bool
	sessionID    string
}

// NewSession binds the response handlers on ch.
func NewSession(ch Channel, view View, renderer *graph.Renderer) *Session {
	s := &Session{
		ch:    ch,
		view:  view,
		graph: renderer,
		newID: func() string { return uuid.New().String() },
	}
	ch.On(models.EventInitializeResponse, func(_ context.Context, env realtime.Envelope) {
		var resp models.InitializeResponse
		if err := env.Decode(&resp); err != nil {
			log.Warn().Err(err).Msg("CLIENT: bad initialize response")
			return
		}
		s.HandleInitializeResponse(env.ID, resp)
	})
	ch.On(models.EventQueryResponse, func(_ context.Context, env realtime.Envelope) {
		var resp models.QueryResponse
		if err := env.Decode(&resp); err != nil {
			log.Warn().Err(err).Msg("CLIENT: bad query response")
			return
		}
		s.HandleQueryResponse(env.ID, resp)
	})
	ch.OnDisconnect(func() {
		log.Info().Msg("CLIENT: disconnected from server")
	})
	return s
}

// SubmitSetup sends the vault and model selections.
func (s *Session) SubmitSetup(vaultPath, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSetup != "" {
		return ErrSetupPending
	}

	s.view.SetSetupBusy(true)
	id := s.newID()
	err := s.ch.Emit(models.EventInitialize, id, models.InitializeRequest{
		VaultPath: vaultPath,
		ModelName: modelName,
	})
	if err != nil {
		s.view.SetSetupBusy(false)
		return err
	}
	s.pendingSetup = id
	return nil
}

// HandleInitializeResponse applies a setup outcome. Responses that do not
// answer the outstanding request are ignored; an empty id is always accepted.
func (s *Session) HandleInitializeResponse(id string, resp models.InitializeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !matches(id, s.pendingSetup) {
		log.Debug().Str("id", id).Msg("CLIENT: stale initialize response dropped")
		return
	}
	s.pendingSetup = ""

	if resp.Status == models.StatusSuccess {
		if !s.initialized {
			s.view.ShowSetup(false)
			s.view.ShowChat(true)
			s.initialized = true
		}
		s.sessionID = resp.SessionID
	} else {
		s.view.Alert("Initialization failed: " + resp.Message)
	}
	s.view.SetSetupBusy(false)
}

// SubmitQuery sends a question. It reports false without touching the view
// when the trimmed input is empty.
func (s *Session) SubmitQuery(input string) (bool, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetLoading(true)
	s.view.SetResponse("")
	s.view.ShowGraph(false)

	id := s.newID()
	err := s.ch.Emit(models.EventQuery, id, models.QueryRequest{Query: query})
	s.view.ClearInput()
	if err != nil {
		s.view.SetLoading(false)
		s.view.ShowError(err.Error())
		return true, err
	}
	s.pendingQuery = id
	return true, nil
}

// HandleQueryResponse renders an answer. Only the response to the most
// recent query is applied.
func (s *Session) HandleQueryResponse(id string, resp models.QueryResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !matches(id, s.pendingQuery) {
		log.Debug().Str("id", id).Msg("CLIENT: stale query response dropped")
		return
	}
	s.pendingQuery = ""

	s.view.SetLoading(false)
	if resp.Status == models.StatusError {
		s.view.ShowError(resp.Message)
		return
	}
	s.view.SetResponse(resp.Response)
	if len(resp.Files) > 0 {
		s.view.ShowGraph(true)
		s.graph.Update(resp.Files)
	}
}

// Initialized reports whether setup has succeeded.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// SessionID is the server session assigned at setup, if any.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func matches(got, pending string) bool {
	if got == "" {
		return true
	}
	return got == pending
}
