package service

import "dbhealth/internal/model"

// Assessment is the outcome of evaluating one domain's metrics.
// Findings are kept in evaluation order.
type Assessment struct {
	Skipped         bool
	Derived         model.MetricSet
	Warnings        []model.Finding
	Recommendations []model.Finding
}

func (a *Assessment) warn(f model.Finding) {
	a.Warnings = append(a.Warnings, f)
}

func (a *Assessment) recommend(f model.Finding) {
	a.Recommendations = append(a.Recommendations, f)
}

func (a *Assessment) derive(m model.Metric) {
	a.Derived = append(a.Derived, m)
}

// derivedPercent returns a derived percentage, or its unavailable marker when ok is false.
func derivedPercent(name string, value float64, ok bool) model.Metric {
	if !ok {
		return model.Unavailable(name, model.KindNumeric, model.UnitPercent, model.SourceDerived)
	}
	return model.NewNumeric(name, model.UnitPercent, model.SourceDerived, value)
}

func derivedCount(name string, n int) model.Metric {
	return model.NewNumeric(name, model.UnitCount, model.SourceDerived, float64(n))
}

// floats returns the values of all named metrics, or ok=false if any is unavailable.
func floats(set model.MetricSet, names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := set.Float(name)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
