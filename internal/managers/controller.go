package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/gridlive/internal/controllers/restserver"
	"github.com/chrissnell/gridlive/internal/metrics"
	"github.com/chrissnell/gridlive/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates the controllers the configuration calls for.
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData, d restserver.Dashboard, m *metrics.Metrics, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		config:      c,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	rest, err := restserver.NewController(ctx, wg, c, d, m, logger.Named("rest"))
	if err != nil {
		return nil, fmt.Errorf("error creating REST controller: %v", err)
	}
	cm.controllers = append(cm.controllers, rest)

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      *config.ConfigData
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}
