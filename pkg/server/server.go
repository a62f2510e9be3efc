package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bastiangx/wordlist/internal/logger"
	"github.com/bastiangx/wordlist/internal/metrics"
	"github.com/bastiangx/wordlist/internal/utils"
	"github.com/bastiangx/wordlist/pkg/completion"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/registry"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"go.lsp.dev/protocol"
)

// Server handles the IPC for document word completions
type Server struct {
	registry *registry.Registry
	engine   *completion.Engine
	config   *config.Config
	metrics  *metrics.Metrics
	decoder  *msgpack.Decoder
	encoder  *msgpack.Encoder
	log      *log.Logger
	requests int
}

// NewServer creates a completion server reading requests from in and writing responses to out.
func NewServer(reg *registry.Registry, engine *completion.Engine, cfg *config.Config, m *metrics.Metrics, in io.Reader, out io.Writer) *Server {
	return &Server{
		registry: reg,
		engine:   engine,
		config:   cfg,
		metrics:  m,
		decoder:  msgpack.NewDecoder(in),
		encoder:  msgpack.NewEncoder(out),
		log:      logger.New("ipc"),
	}
}

// Start begins listening for IPC requests. It returns nil once the input
// reaches EOF, or the context error as soon as ctx ends, even while a read
// is still pending.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting Server.")
	if err := s.send(StatusResponse{Status: StatusReady}); err != nil {
		return err
	}

	frames := s.readFrames(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var f frame
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok = <-frames:
			if !ok {
				return ctx.Err()
			}
		}

		if f.err != nil {
			if errors.Is(f.err, io.EOF) {
				s.log.Debugf("Input closed after %d requests", s.requests)
				return nil
			}
			s.log.Errorf("Reading request: %v", f.err)
			s.sendStatus("", StatusError, fmt.Errorf("invalid request: %w", f.err))
			return fmt.Errorf("read request: %w", f.err)
		}
		s.requests++

		var request Request
		if err := msgpack.Unmarshal(f.raw, &request); err != nil {
			id := requestID(f.raw)
			s.log.Warn("Malformed request", "id", id, "err", err)
			if err := s.sendStatus(id, StatusError, fmt.Errorf("invalid request: %w", err)); err != nil {
				return err
			}
			continue
		}

		if err := s.handleRequest(ctx, request); err != nil {
			return err
		}
	}
}

// frame is one undecoded msgpack message, or the error that ended the input.
type frame struct {
	raw msgpack.RawMessage
	err error
}

// readFrames reads whole messages off the input until it fails or ctx ends.
// Messages are split before decoding so one badly typed request does not
// desync the stream.
func (s *Server) readFrames(ctx context.Context) <-chan frame {
	frames := make(chan frame)
	go func() {
		defer close(frames)
		for {
			raw, err := s.decoder.DecodeRaw()
			select {
			case frames <- frame{raw: raw, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return frames
}

// requestID salvages the id of a request that failed to decode.
func requestID(raw msgpack.RawMessage) string {
	var partial struct {
		ID string `msgpack:"id"`
	}
	if err := msgpack.Unmarshal(raw, &partial); err != nil {
		return ""
	}
	return partial.ID
}

// handleRequest dispatches on the op. Only failures to write a response are returned.
func (s *Server) handleRequest(ctx context.Context, request Request) error {
	switch request.Op {
	case OpOpen:
		return s.handleOpen(request)
	case OpChange:
		return s.handleChange(request)
	case OpClose:
		err := s.registry.Close(protocol.DocumentURI(request.URI))
		return s.sendResult(request.ID, err)
	case OpComplete:
		return s.handleComplete(ctx, request)
	case OpActive:
		s.registry.SetActiveWord(request.Word)
		return s.sendStatus(request.ID, StatusOK, nil)
	case OpStats:
		return s.handleStats(request)
	case OpHealth:
		return s.sendStatus(request.ID, StatusOK, nil)
	default:
		return s.sendStatus(request.ID, StatusError, fmt.Errorf("unknown op: %q", request.Op))
	}
}

func (s *Server) handleOpen(request Request) error {
	if request.URI == "" {
		return s.sendStatus(request.ID, StatusError, errors.New("missing 'uri'"))
	}
	err := s.registry.Open(protocol.DocumentURI(request.URI), request.Text)
	return s.sendResult(request.ID, err)
}

func (s *Server) handleChange(request Request) error {
	changes := make([]registry.Change, 0, len(request.Changes))
	for _, c := range request.Changes {
		change := registry.Change{Text: c.Text}
		if c.Range != nil {
			change.Range = &protocol.Range{
				Start: protocol.Position{Line: c.Range.StartLine, Character: c.Range.StartChar},
				End:   protocol.Position{Line: c.Range.EndLine, Character: c.Range.EndChar},
			}
		}
		changes = append(changes, change)
	}
	err := s.registry.Change(protocol.DocumentURI(request.URI), changes...)
	return s.sendResult(request.ID, err)
}

// handleComplete answers a completion request. It never reports an error:
// unknown documents and timeouts answer with no suggestions.
func (s *Server) handleComplete(ctx context.Context, request Request) error {
	start := time.Now()
	limit := request.Limit
	if limit < 1 {
		limit = s.config.Server.DefaultLimit
	}
	limit = utils.ClampInt(limit, 1, s.config.Server.MaxLimit)

	response := CompletionResponse{
		ID:          request.ID,
		Suggestions: []CompletionSuggestion{},
	}

	doc, ok := s.registry.Document(protocol.DocumentURI(request.URI))
	if !ok {
		s.log.Debugf("Completion for untracked document %q", request.URI)
	} else {
		if s.config.Server.QueryTimeoutMs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.Server.QueryTimeoutMs)*time.Millisecond)
			defer cancel()
		}
		pos := protocol.Position{Line: request.Line, Character: request.Char}
		items := s.engine.Complete(ctx, doc, pos)
		if len(items) > limit {
			items = items[:limit]
		}
		for i, item := range items {
			response.Suggestions = append(response.Suggestions, CompletionSuggestion{
				Word:   item.Label,
				Detail: item.Detail,
				Rank:   uint16(i + 1),
			})
		}
	}

	response.Count = len(response.Suggestions)
	response.TimeTaken = time.Since(start).Microseconds()
	return s.send(response)
}

func (s *Server) handleStats(request Request) error {
	stats, err := s.metrics.Snapshot()
	if err != nil {
		return s.sendStatus(request.ID, StatusError, err)
	}
	return s.send(StatsResponse{
		ID:        request.ID,
		Documents: s.registry.Len(),
		Stats:     stats,
	})
}

// sendResult maps a registry error onto a status response.
func (s *Server) sendResult(id string, err error) error {
	switch {
	case err == nil:
		return s.sendStatus(id, StatusOK, nil)
	case errors.Is(err, registry.ErrUnknownDocument), errors.Is(err, registry.ErrDisposed):
		s.log.Warn("Rejected request", "id", id, "err", err)
		return s.sendStatus(id, StatusError, err)
	default:
		s.log.Warn("Document skipped", "id", id, "err", err)
		return s.sendStatus(id, StatusSkipped, err)
	}
}

func (s *Server) sendStatus(id, status string, err error) error {
	response := StatusResponse{ID: id, Status: status}
	if err != nil {
		response.Error = err.Error()
	}
	return s.send(response)
}

// send encodes one response onto the output stream.
func (s *Server) send(response any) error {
	if err := s.encoder.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}
