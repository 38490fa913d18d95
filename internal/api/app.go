package api

import (
	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/flow"
	"github.com/bagiro44/baby-tracker/internal/service"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

type App interface {
	Logger() internal.Logger
	Subjects() storage.SubjectRepository
	Engine() *service.SessionEngine
	Stats() *service.StatsAggregator
	Flows() *flow.Manager
}

type app struct {
	logger   internal.Logger
	subjects storage.SubjectRepository
	engine   *service.SessionEngine
	stats    *service.StatsAggregator
	flows    *flow.Manager
}

func NewApp(logger internal.Logger, subjects storage.SubjectRepository, engine *service.SessionEngine, stats *service.StatsAggregator, flows *flow.Manager) App {
	return &app{logger: logger, subjects: subjects, engine: engine, stats: stats, flows: flows}
}

func (a *app) Logger() internal.Logger { return a.logger }

func (a *app) Subjects() storage.SubjectRepository { return a.subjects }

func (a *app) Engine() *service.SessionEngine { return a.engine }

func (a *app) Stats() *service.StatsAggregator { return a.stats }

func (a *app) Flows() *flow.Manager { return a.flows }
