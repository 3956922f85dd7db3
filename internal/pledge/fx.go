package pledge

import (
	"github.com/kanisahq/kanisa/internal/pledge/repository"
	"github.com/kanisahq/kanisa/internal/pledge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pledge.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
