package contribution

import (
	"github.com/kanisahq/kanisa/internal/contribution/repository"
	"github.com/kanisahq/kanisa/internal/contribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contribution.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
