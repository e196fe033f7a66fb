package recommend

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Generator evaluates a rule table. Every matching rule contributes one
// recommendation; rules are independent of each other.
type Generator struct {
	Rules []Rule
	Now   func() time.Time
}

// NewGenerator returns a generator over rules, or over DefaultRules when
// rules is empty.
func NewGenerator(rules []Rule) *Generator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Generator{Rules: rules, Now: time.Now}
}

// Recommend evaluates the rules against the twin's current sample and the
// forecast's short-horizon sample. A nil forecast only lets current-input
// rules fire. The result is ordered by priority, highest first, then by rule
// order.
func (g *Generator) Recommend(twin *model.Twin, forecast *model.ForecastBundle) []model.Recommendation {
	if twin == nil {
		return nil
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}

	var out []model.Recommendation
	for _, r := range g.Rules {
		var src model.MetricSample
		switch r.Input {
		case InputCurrent:
			src = twin.CurrentState
		case InputForecast:
			if forecast == nil {
				continue
			}
			src = forecast.NextShortTerm
		default:
			continue
		}
		v, ok := src.Value(r.Metric)
		if !ok || v <= r.Above {
			continue
		}
		out = append(out, model.Recommendation{
			ID:                  "rec-" + uuid.NewString(),
			Rule:                r.Name,
			Type:                r.Type,
			Priority:            r.priorityFor(v),
			Title:               r.Title,
			Description:         r.describe(v),
			EstimatedImpact:     r.Impact,
			ActionRequired:      r.ActionRequired,
			AutomationAvailable: r.AutomationAvailable,
			CreatedAt:           now,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}
