package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/gridlive/internal/dashboard"
	"github.com/chrissnell/gridlive/internal/log"
	"github.com/chrissnell/gridlive/internal/metrics"
	"github.com/chrissnell/gridlive/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Dashboard is the service the handlers delegate to.
type Dashboard interface {
	LicenseAreas(ctx context.Context) ([]string, error)
	SubstationMap(ctx context.Context, areas []string, limit int) (*dashboard.MapView, error)
	NearbyMap(ctx context.Context, lat, lon float64, radius int) (*dashboard.MapView, error)
	SubstationSeries(ctx context.Context, q dashboard.SeriesQuery) (*dashboard.SeriesResult, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.ServerData
	cfg        *config.ConfigData
	Server     http.Server
	dashboard  Dashboard
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger
	handlers   *Handlers
	now        func() time.Time
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, d Dashboard, m *metrics.Metrics, logger *zap.SugaredLogger) (*Controller, error) {
	if d == nil {
		return nil, fmt.Errorf("REST server needs a dashboard service")
	}

	rc := cfg.Server
	if rc.ListenAddr == "" {
		logger.Info("server.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = config.DefaultListenAddr
	}
	if rc.Port == 0 {
		logger.Infof("server.port not provided; defaulting to %d", config.DefaultPort)
		rc.Port = config.DefaultPort
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		cfg:        cfg,
		dashboard:  d,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.Router()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Router builds the HTTP handler with every endpoint and middleware attached.
func (c *Controller) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(c.requestIDMiddleware, c.accessLogMiddleware)

	get := []string{http.MethodGet, http.MethodHead}
	router.HandleFunc("/license-areas", c.handlers.GetLicenseAreas).Methods(get...)
	router.HandleFunc("/substations", c.handlers.GetSubstations).Methods(get...)
	router.HandleFunc("/substations/near", c.handlers.GetNearbySubstations).Methods(get...)
	router.HandleFunc("/substations/{id}/smart-meter", c.handlers.GetSmartMeterSeries).Methods(get...)
	router.HandleFunc("/smart-meter", c.handlers.GetMarkerSeries).Methods(get...)
	router.HandleFunc("/gridref", c.handlers.GetGridReference).Methods(get...)
	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(get...)

	if c.cfg.Metrics.Enabled && c.metrics != nil {
		path := c.cfg.Metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		router.Handle(path, c.metrics.Handler()).Methods(get...)
	}

	var h http.Handler = router
	h = handlers.CompressHandler(h)
	if c.restConfig.EnableCORS {
		origins := c.restConfig.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		h = handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Accept", "Content-Type", requestIDHeader}),
			handlers.ExposedHeaders([]string{requestIDHeader}),
		)(h)
	}
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{c.logger}))(h)
}

// recoveryLogger routes panics caught by the recovery handler to zap.
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.logger.Error(args...)
}
