package service

import (
	"go.uber.org/fx"
)

var (
	Module = fx.Provide(
		NewAuth,
		NewUsers,
		NewCatalog,
		NewTitles,
		NewReviews,
		NewComments,
	)
)
