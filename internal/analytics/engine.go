package analytics

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"file-monitor-dashboard/internal/model"
)

type cacheKey struct {
	generation uint64
	criteria   model.FilterCriteria
}

// View is the filtered event list and the analytics of the full snapshot.
type View struct {
	Events    []model.FileEvent
	Analytics model.Analytics
}

// Engine memoizes derivations per snapshot generation. A new generation is
// always derived from scratch; an unchanged one is served from the cache.
type Engine struct {
	loc      *time.Location
	views    *lru.Cache[cacheKey, []model.FileEvent]
	analytic *lru.Cache[uint64, model.Analytics]
}

func NewEngine(size int, loc *time.Location) (*Engine, error) {
	views, err := lru.New[cacheKey, []model.FileEvent](size)
	if err != nil {
		return nil, err
	}
	analytic, err := lru.New[uint64, model.Analytics](size)
	if err != nil {
		return nil, err
	}
	return &Engine{loc: loc, views: views, analytic: analytic}, nil
}

// View returns the filtered events and the analytics for one snapshot.
// Callers must treat the returned slices as read-only.
func (e *Engine) View(events []model.FileEvent, generation uint64, criteria model.FilterCriteria) View {
	return View{
		Events:    e.Filtered(events, generation, criteria),
		Analytics: e.Analytics(events, generation),
	}
}

func (e *Engine) Filtered(events []model.FileEvent, generation uint64, criteria model.FilterCriteria) []model.FileEvent {
	key := cacheKey{generation: generation, criteria: criteria}
	if cached, ok := e.views.Get(key); ok {
		return cached
	}
	filtered := Filter(events, criteria)
	e.views.Add(key, filtered)
	return filtered
}

func (e *Engine) Analytics(events []model.FileEvent, generation uint64) model.Analytics {
	if cached, ok := e.analytic.Get(generation); ok {
		return cached
	}
	summary := Summarize(events, e.loc)
	e.analytic.Add(generation, summary)
	return summary
}
