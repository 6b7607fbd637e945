// Package ui serves the web form front-end: the same fields the config file
// carries, plus a live log stream while the agent works.
package ui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cartagent/internal/config"
	"cartagent/internal/history"
	"cartagent/internal/task"
)

// Launcher runs one cart task, reporting progress through logf. The real
// implementation opens a browser; tests substitute a stub.
type Launcher func(ctx context.Context, cfg *config.Config, logf func(format string, args ...any)) error

type Server struct {
	launcher Launcher
	store    *history.Store
	log      *zap.Logger

	mu   sync.Mutex
	runs map[string]*runLog
}

// NewServer wires the UI. store may be nil (no persisted history endpoint
// data), log may be nil.
func NewServer(launcher Launcher, store *history.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		launcher: launcher,
		store:    store,
		log:      log,
		runs:     make(map[string]*runLog),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleForm)
	r.POST("/api/cart", s.handleStartCart)
	r.GET("/api/runs", s.handleRecentRuns)
	r.GET("/api/runs/:id/events", s.handleRunEvents)
	return r
}

func (s *Server) Run(addr string) error {
	s.log.Info("ui listening", zap.String("addr", addr))
	return s.Router().Run(addr)
}

type cartRequest struct {
	Website     string             `json:"website"`
	Items       []config.Item      `json:"items"`
	ItemsText   string             `json:"items_text"`
	Credentials config.Credentials `json:"credentials"`
	Headless    bool               `json:"headless"`
}

func (s *Server) handleStartCart(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := req.Items
	if len(items) == 0 {
		items = ParseItemLines(req.ItemsText)
	}

	cfg := &config.Config{
		Website:     req.Website,
		Items:       items,
		Credentials: req.Credentials,
		Headless:    req.Headless,
	}
	cfg.ApplyEnvDefaults()
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := s.startRun(cfg)
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *Server) handleRecentRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, []history.Run{})
		return
	}
	runs, err := s.store.Recent(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRunEvents(c *gin.Context) {
	s.mu.Lock()
	rl, ok := s.runs[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")

	ch, stop := rl.subscribe()
	defer stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case line, open := <-ch:
			if !open {
				c.SSEvent("done", "run complete")
				return false
			}
			c.SSEvent("log", line)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) handleForm(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(formHTML))
}

// startRun registers a run log and kicks the launcher off in the background.
func (s *Server) startRun(cfg *config.Config) string {
	id := uuid.NewString()
	rl := newRunLog()

	s.mu.Lock()
	s.runs[id] = rl
	s.mu.Unlock()

	go func() {
		defer rl.finish()

		logf := func(format string, args ...any) {
			rl.append(fmt.Sprintf(format, args...))
		}

		logf("Configuration created with %d item(s) for %s.", len(cfg.Items), cfg.Website)
		logf("Items to be added to cart:\n%s", task.FormatItems(cfg.Items))
		if cfg.Credentials.Provided() {
			logf("Login credentials provided. The agent will attempt to use them if needed.")
		} else {
			logf("No login credentials provided. If login is required, the browser will open to the login page and pause.")
			logf("You will need to manually enter your credentials in the browser when prompted.")
			logf("This approach works better for sites with OTP verification, CAPTCHA, or two-factor authentication.")
		}
		logf("Starting web cart agent...")

		if err := s.launcher(context.Background(), cfg, logf); err != nil {
			s.log.Warn("run failed", zap.String("website", cfg.Website), zap.Error(err))
			logf("Error during execution: %v", err)
			return
		}
		logf("Success! All items have been added to cart on %s.", cfg.Website)
	}()

	return id
}

// runLog buffers a run's log lines. Subscribers each walk the buffer with
// their own cursor, so a slow reader delays only itself and never drops lines.
type runLog struct {
	mu   sync.Mutex
	cond *sync.Cond

	lines []string
	done  bool
}

func newRunLog() *runLog {
	l := &runLog{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *runLog) append(line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
	l.cond.Broadcast()
}

func (l *runLog) finish() {
	l.mu.Lock()
	l.done = true
	l.mu.Unlock()
	l.cond.Broadcast()
}

func (l *runLog) isDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// subscribe streams every line from the start of the run on the returned
// channel, which is closed once the run finished and all lines were
// delivered. The stop function releases the subscription early.
func (l *runLog) subscribe() (<-chan string, func()) {
	ch := make(chan string)
	stopped := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(stopped)
			l.cond.Broadcast()
		})
	}

	go func() {
		defer close(ch)
		cursor := 0
		for {
			l.mu.Lock()
			for cursor >= len(l.lines) && !l.done {
				select {
				case <-stopped:
					l.mu.Unlock()
					return
				default:
				}
				l.cond.Wait()
			}
			if cursor >= len(l.lines) {
				l.mu.Unlock()
				return
			}
			line := l.lines[cursor]
			cursor++
			l.mu.Unlock()

			select {
			case ch <- line:
			case <-stopped:
				return
			}
		}
	}()

	return ch, stop
}
