package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github/itish2003/vaultchat/models"
)

var (
	ErrVaultRequired  = errors.New("Vault path is required")
	ErrNotInitialized = errors.New("AI Assistant not initialized")
	ErrQueryRequired  = errors.New("Query is required")
)

// NoRelevantNotes is the answer when the search finds nothing.
const NoRelevantNotes = "No relevant notes found."

// RAGService interface defines the operations behind the setup and query flows.
type RAGService interface {
	Initialize(c context.Context, req models.InitializeRequest) (string, error)
	Query(c context.Context, sessionID, query string) (*models.QueryResponse, error)
	Close(sessionID string)
	ReadNote(sessionID, path string) (*models.NoteContentResponse, error)
	Vaults() []string
	History(limit int) ([]models.Exchange, error)
}

// Options wires the backends a RAG service uses. Gemini, Index and History
// may be nil.
type Options struct {
	Ollama   ModelBackend
	Gemini   ModelBackend
	Markdown *MarkdownRenderer
	Index    IndexOpener
	History  *HistoryStore
	// Discover lists vaults for the setup form; defaults to DiscoverVaults.
	Discover func() []string
}

type session struct {
	id       string
	vault    string
	model    string
	backend  ModelBackend
	searcher NoteSearcher
	files    *FileActions
	cancel   context.CancelFunc
}

// ragServiceImpl holds the dependencies it needs to do its job
type ragServiceImpl struct {
	opts     Options
	sessions map[string]*session
	mu       sync.Mutex
}

// NewRAGService creates a new RAG service instance
func NewRAGService(opts Options) RAGService {
	if opts.Markdown == nil {
		opts.Markdown = NewMarkdownRenderer()
	}
	if opts.Discover == nil {
		opts.Discover = DiscoverVaults
	}
	return &ragServiceImpl{
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

func (r *ragServiceImpl) Vaults() []string {
	return r.opts.Discover()
}

// Initialize validates the vault and model and opens a session on them.
func (r *ragServiceImpl) Initialize(c context.Context, req models.InitializeRequest) (string, error) {
	vault := strings.TrimSpace(req.VaultPath)
	if vault == "" {
		return "", ErrVaultRequired
	}
	model := strings.TrimSpace(req.ModelName)
	if model == "" {
		model = models.DefaultModel
	}
	log.Info().Str("vault", vault).Str("model", model).Msg("SERVICE: initializing")

	if err := checkVault(vault); err != nil {
		return "", err
	}
	backend := r.backendFor(model)
	if backend == nil {
		return "", ErrGeminiUnavailable
	}
	if err := backend.Ping(c); err != nil {
		return "", err
	}

	files, err := NewFileActions(vault)
	if err != nil {
		return "", err
	}
	keyword := NewKeywordSearcher(files.VaultDir)
	var searcher NoteSearcher = keyword

	// The session outlives the request that opened it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c))
	if r.opts.Index != nil {
		idx, err := r.opts.Index.Open(ctx, files.VaultDir, keyword)
		if err != nil {
			log.Warn().Err(err).Msg("SERVICE: semantic index unavailable, using keyword search")
		} else {
			searcher = idx
		}
	}

	s := &session{
		id:       uuid.New().String(),
		vault:    files.VaultDir,
		model:    model,
		backend:  backend,
		searcher: searcher,
		files:    files,
		cancel:   cancel,
	}
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	log.Info().Str("session", s.id).Msg("SERVICE: AI Assistant initialized successfully")
	return s.id, nil
}

func (r *ragServiceImpl) backendFor(model string) ModelBackend {
	if models.IsGeminiModel(model) {
		return r.opts.Gemini
	}
	return r.opts.Ollama
}

// Query runs search, prompt and rendering for one question.
func (r *ragServiceImpl) Query(c context.Context, sessionID, query string) (*models.QueryResponse, error) {
	s := r.lookup(sessionID)
	if s == nil {
		return nil, ErrNotInitialized
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	log.Info().Str("session", s.id).Str("query", query).Msg("SERVICE: processing query")

	resp, err := r.answer(c, s, query)
	r.record(s, query, resp, err)
	return resp, err
}

func (r *ragServiceImpl) answer(c context.Context, s *session, query string) (*models.QueryResponse, error) {
	matches, err := s.searcher.Search(c, query)
	if err != nil {
		return nil, fmt.Errorf("Error searching notes: %w", err)
	}
	if len(matches) == 0 {
		return &models.QueryResponse{
			Status:   models.StatusSuccess,
			Response: NoRelevantNotes,
			Files:    []models.FileReference{},
		}, nil
	}

	top := matches[:min(len(matches), contextNotes)]
	answer, err := s.backend.Generate(c, s.model, BuildPrompt(query, BuildContext(top)))
	if err != nil {
		return nil, err
	}
	html, err := r.opts.Markdown.Render(answer)
	if err != nil {
		return nil, err
	}

	files := make([]models.FileReference, 0, len(top))
	for _, m := range top {
		files = append(files, m.Reference())
	}
	return &models.QueryResponse{
		Status:   models.StatusSuccess,
		Response: html,
		Files:    files,
	}, nil
}

func (r *ragServiceImpl) record(s *session, query string, resp *models.QueryResponse, err error) {
	if r.opts.History == nil {
		return
	}
	e := models.Exchange{
		SessionID: s.id,
		VaultPath: s.vault,
		ModelName: s.model,
		Query:     query,
		Status:    models.StatusSuccess,
		TS:        time.Now().UTC(),
	}
	if err != nil {
		e.Status = models.StatusError
		e.Message = err.Error()
	} else if resp != nil {
		e.Files = resp.Files
	}
	if err := r.opts.History.Append(e); err != nil {
		log.Warn().Err(err).Msg("SERVICE: persist exchange")
	}
}

func (r *ragServiceImpl) ReadNote(sessionID, path string) (*models.NoteContentResponse, error) {
	s := r.lookup(sessionID)
	if s == nil {
		return nil, ErrNotInitialized
	}
	return s.files.ReadNote(path)
}

func (r *ragServiceImpl) History(limit int) ([]models.Exchange, error) {
	return r.opts.History.Recent(limit)
}

// Close drops the session and stops its watcher.
func (r *ragServiceImpl) Close(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		s.cancel()
		log.Debug().Str("session", sessionID).Msg("SERVICE: session closed")
	}
}

func (r *ragServiceImpl) lookup(sessionID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}
