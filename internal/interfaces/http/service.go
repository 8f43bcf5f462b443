package http_interface

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	appconfig "github.com/exoslabs/cosigner/internal/app-config"
	"github.com/exoslabs/cosigner/internal/interfaces/http/handler"
)

type service struct {
	config       ServiceConfig
	appConfig    *appconfig.AppConfig
	echoInstance *echo.Echo

	log func(format string, a ...interface{})
}

func NewService(
	config ServiceConfig, appConfig *appconfig.AppConfig,
) (*service, error) {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("service: %s", format)
		log.Infof(format, a...)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{config, appConfig, nil, logFn}, nil
}

func (s *service) Start() error {
	e := echo.New()
	e.HideBanner = true
	e.Use(echo_middleware.Logger())
	e.Use(echo_middleware.Recover())

	sessionHandler := handler.NewSessionHandler(s.appConfig.SessionService())

	v1 := e.Group("/v1")
	v1.GET("/info", s.getInfo)
	v1.POST("/sessions", sessionHandler.StartSession)
	v1.GET("/sessions", sessionHandler.ListSessions)
	v1.GET("/sessions/:id", sessionHandler.GetSession)
	v1.POST("/sessions/:id/sign", sessionHandler.SignSession)
	v1.POST("/sessions/:id/broadcast", sessionHandler.BroadcastSession)
	v1.POST("/sessions/:id/save", sessionHandler.SaveSession)
	v1.GET("/sessions/:id/export", sessionHandler.ExportSession)
	v1.DELETE("/sessions/:id", sessionHandler.CloseSession)

	s.echoInstance = e

	go func() {
		if err := e.Start(s.config.address()); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server exited with error")
		}
	}()

	s.log("start listening on %s", s.config.address())
	return nil
}

func (s *service) Stop() {
	if s.echoInstance != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// nolint:errcheck
		s.echoInstance.Shutdown(ctx)
		s.log("stopped http server")
	}
	s.appConfig.RepoManager().Close()
	s.log("closed connection with db")
}

type infoResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

func (s *service) getInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, infoResponse{
		Version:   s.appConfig.Version,
		Commit:    s.appConfig.Commit,
		BuildDate: s.appConfig.Date,
	})
}
