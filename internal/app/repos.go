package app

import (
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/repos"
)

type Repos struct {
	Queue    repos.QueueRepo
	Workers  repos.WorkerRepo
	Schemas  repos.SchemaRepo
	Counters repos.CounterRepo
	Results  repos.ResultRepo
}

func wireRepos(rdb *goredis.Client, db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Queue:    repos.NewQueueRepo(rdb, log),
		Workers:  repos.NewWorkerRepo(rdb, log),
		Schemas:  repos.NewSchemaRepo(rdb, log),
		Counters: repos.NewCounterRepo(rdb, log),
		Results:  repos.NewResultRepo(db, log),
	}
}
