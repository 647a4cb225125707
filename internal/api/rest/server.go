package rest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/infrastructure/camera"
	"connector-vision/internal/infrastructure/storage"
	"connector-vision/internal/infrastructure/vision"
)

const (
	shutdownTimeout = 5 * time.Second
	wsWriteTimeout  = 2 * time.Second
	jpegQuality     = 85
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inspection: то, что HTTP-слой использует из сервиса инспекции.
type Inspection interface {
	Latest() *entity.InspectionOutcome
	Stats() entity.InspectionStats
	ResetStats()
	ModelNames() ([]string, error)
	ActivateModel(name string) (*entity.InspectionSettings, error)
	SaveModel(name string) (*entity.InspectionSettings, error)
	DeleteModel(name string) error
	CurrentModel() string
	Subscribe() (<-chan *entity.InspectionOutcome, func())
}

// Camera: источник кадров и его состояние.
type Camera interface {
	Snapshot() (entity.Frame, bool)
	Info() camera.Info
	CurrentFPS() float64
	ReadProperties() (entity.CameraProperties, error)
}

// Server: HTTP API для внешнего интерфейса линии.
type Server struct {
	inspection Inspection
	camera     Camera
	metrics    http.Handler
	logger     *zap.Logger
	router     *gin.Engine
}

// NewServer собирает маршруты. metrics может быть nil.
func NewServer(inspection Inspection, cam Camera, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		inspection: inspection,
		camera:     cam,
		metrics:    metrics,
		logger:     logger,
	}
	s.router = s.routes()
	return s
}

// Handler возвращает gin.Engine как http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает addr до отмены ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/status", s.status)
	r.GET("/api/outcome", s.outcome)
	r.GET("/api/stats", s.stats)
	r.POST("/api/stats/reset", s.resetStats)
	r.GET("/api/models", s.models)
	r.POST("/api/models/:name/activate", s.activate)
	r.PUT("/api/models/:name", s.saveModel)
	r.DELETE("/api/models/:name", s.deleteModel)
	r.GET("/api/camera/properties", s.cameraProperties)
	r.GET("/api/snapshot.jpg", s.snapshot)
	r.GET("/ws/outcomes", s.streamOutcomes)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// outcomeView: результат в виде для клиента.
type outcomeView struct {
	ID          string                  `json:"id"`
	Verdict     string                  `json:"verdict"`
	Pass        bool                    `json:"pass"`
	MaxGapWidth float64                 `json:"max_gap_width"`
	DurationMS  float64                 `json:"duration_ms"`
	Lines       []entity.GapMeasurement `json:"lines"`
	Note        string                  `json:"note,omitempty"`
	CapturedAt  time.Time               `json:"captured_at"`
}

func newOutcomeView(o *entity.InspectionOutcome) outcomeView {
	lines := o.Lines
	if lines == nil {
		lines = []entity.GapMeasurement{}
	}
	return outcomeView{
		ID:          o.ID,
		Verdict:     o.Verdict(),
		Pass:        o.Pass,
		MaxGapWidth: o.MaxGapWidth,
		DurationMS:  float64(o.Duration) / float64(time.Millisecond),
		Lines:       lines,
		Note:        o.Note,
		CapturedAt:  o.CapturedAt,
	}
}

func (s *Server) status(c *gin.Context) {
	resp := gin.H{
		"model": s.inspection.CurrentModel(),
		"stats": s.statsBody(),
	}
	if s.camera != nil {
		resp["camera"] = s.camera.Info()
		resp["fps"] = s.camera.CurrentFPS()
	}
	if o := s.inspection.Latest(); o != nil {
		resp["verdict"] = o.Verdict()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) outcome(c *gin.Context) {
	o := s.inspection.Latest()
	if o == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no outcome yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newOutcomeView(o)})
}

func (s *Server) statsBody() gin.H {
	st := s.inspection.Stats()
	return gin.H{"total": st.Total, "ok": st.OK, "ng": st.NG, "ok_rate": st.OKRate()}
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.statsBody()})
}

func (s *Server) resetStats(c *gin.Context) {
	s.inspection.ResetStats()
	c.JSON(http.StatusOK, gin.H{"data": s.statsBody()})
}

func (s *Server) models(c *gin.Context) {
	names, err := s.inspection.ModelNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": names, "current": s.inspection.CurrentModel()})
}

func (s *Server) activate(c *gin.Context) {
	settings, err := s.inspection.ActivateModel(c.Param("name"))
	if err != nil {
		modelError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// saveModel сохраняет текущие параметры как профиль модели.
func (s *Server) saveModel(c *gin.Context) {
	settings, err := s.inspection.SaveModel(c.Param("name"))
	if err != nil {
		modelError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) deleteModel(c *gin.Context) {
	if err := s.inspection.DeleteModel(c.Param("name")); err != nil {
		modelError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func modelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrModelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
	case errors.Is(err, storage.ErrInvalidModelName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) cameraProperties(c *gin.Context) {
	if s.camera == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "camera is not configured"})
		return
	}
	props, err := s.camera.ReadProperties()
	if errors.Is(err, camera.ErrNotRunning) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": props})
}

// snapshot отдаёт JPEG: живой кадр или диагностику последнего результата (?view=).
func (s *Server) snapshot(c *gin.Context) {
	var img image.Image
	switch view := c.DefaultQuery("view", "live"); view {
	case "live":
		if s.camera == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "camera is not configured"})
			return
		}
		frame, ok := s.camera.Snapshot()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
			return
		}
		img = vision.FrameToImage(frame)
	case "gray", "annotated", "profile", "edges":
		o := s.inspection.Latest()
		if o != nil {
			img = diagnostic(o.Diagnostics, view)
		}
		if img == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "diagnostic image is not available"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown view"})
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

func diagnostic(d entity.DiagnosticImages, view string) image.Image {
	switch view {
	case "gray":
		return d.Grayscale
	case "annotated":
		return d.Annotated
	case "profile":
		return d.Profile
	case "edges":
		return d.Edges
	}
	return nil
}

// streamOutcomes шлёт клиенту каждый новый результат; медленный клиент
// получает только последний.
func (s *Server) streamOutcomes(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	outcomes, cancel := s.inspection.Subscribe()
	defer cancel()

	// читаем, чтобы заметить закрытие со стороны клиента
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case o := <-outcomes:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(newOutcomeView(o)); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
