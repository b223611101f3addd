package app

import (
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
)

type Repos struct {
	User        repos.UserRepo
	Bot         repos.BotRepo
	Source      repos.SourceRepo
	Chunk       repos.ChunkRepo
	QueryLog    repos.QueryLogRepo
	WidgetToken repos.WidgetTokenRepo
	RateCounter repos.RateCounterRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		Bot:         repos.NewBotRepo(db, log),
		Source:      repos.NewSourceRepo(db, log),
		Chunk:       repos.NewChunkRepo(db, log),
		QueryLog:    repos.NewQueryLogRepo(db, log),
		WidgetToken: repos.NewWidgetTokenRepo(db, log),
		RateCounter: repos.NewRateCounterRepo(db, log),
	}
}
