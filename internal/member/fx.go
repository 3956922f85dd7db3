package member

import (
	"github.com/kanisahq/kanisa/internal/member/repository"
	"github.com/kanisahq/kanisa/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
