package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/config"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/mail"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/service"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/token"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			db.NewGormClient,
			token.NewManager,
			mail.NewSender,
			newLogger,
		),
		service.Module,
		transport.Module,
		fx.Invoke(func(*transport.HTTPServer) {}),
	)

	app.Run()
}

func newLogger() (*zap.SugaredLogger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
