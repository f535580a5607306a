package server

import (
	"embed"
	"io/fs"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/broadcast"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/history"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/index"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/parser"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/ring"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/scanner"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/stats"
)

//go:embed all:web
var webFS embed.FS

// Server holds the Gin engine and the panel's query/stream dependencies.
type Server struct {
	engine    *gin.Engine
	idx       *index.Index
	ring      *ring.Ring
	pager     *history.Paginator
	scan      *scanner.Scanner
	bcast     *broadcast.Broadcaster
	statsPath string
	heartbeat time.Duration
	addr      string
}

// New creates the panel's HTTP server.
func New(idx *index.Index, rg *ring.Ring, pager *history.Paginator, scan *scanner.Scanner,
	bc *broadcast.Broadcaster, statsPath, addr string, heartbeat time.Duration) *Server {

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:    engine,
		idx:       idx,
		ring:      rg,
		pager:     pager,
		scan:      scan,
		bcast:     bc,
		statsPath: statsPath,
		heartbeat: heartbeat,
		addr:      addr,
	}

	s.setupRoutes()
	return s
}

// serveEmbedded reads a file from the embedded FS and writes it with the given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	webContent, _ := fs.Sub(webFS, "web")

	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))

	s.engine.GET("/api/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	s.engine.GET("/api/users", s.handleUsers)
	s.engine.GET("/api/user_events", s.handleUserEvents)
	s.engine.GET("/api/recent", s.handleRecent)
	s.engine.GET("/api/stats", s.handleStats)
	s.engine.GET("/api/scan_progress", s.handleScanProgress)

	// Live streams.
	s.engine.GET("/api/events", s.handleEvents)
	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// handleUsers returns the filtered, ordered index snapshot.
func (s *Server) handleUsers(c *gin.Context) {
	limit := intQuery(c, "limit", 600, 1, 5000)
	items := s.idx.Snapshot(c.Query("user_q"), c.Query("site_q"), limit)
	c.JSON(http.StatusOK, items)
}

// handleUserEvents pages backward through the raw log for one base user.
func (s *Server) handleUserEvents(c *gin.Context) {
	base := c.Query("base")
	if base == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base is required"})
		return
	}
	limit := intQuery(c, "limit", 3000, 10, 10000)

	// Clients may pass a raw session variant; history is keyed by base.
	events, err := s.pager.PageBefore(parser.BaseKey(base), limit, c.Query("before_ts"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// handleRecent exposes the ring buffer for lightweight inspection.
func (s *Server) handleRecent(c *gin.Context) {
	limit := intQuery(c, "limit", 100, 1, 5000)
	c.JSON(http.StatusOK, s.ring.Recent(limit))
}

// handleStats serves warning/deactivation counters re-keyed by base user.
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Load(s.statsPath))
}

// handleScanProgress reports the backfill scan state.
func (s *Server) handleScanProgress(c *gin.Context) {
	c.JSON(http.StatusOK, s.scan.Progress())
}

// intQuery parses an integer query parameter with a default and bounds.
func intQuery(c *gin.Context, name string, def, min, max int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	return s.engine.Run(s.addr)
}
