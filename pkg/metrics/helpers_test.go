package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

// pairs are label name/value alternations; every pair must match.
func findMetric(mfs []*dto.MetricFamily, name string, pairs ...string) (*dto.Metric, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), pairs) {
			return metric, nil
		}
	}
	return nil, fmt.Errorf("metric %q has no series for %v", name, pairs)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, pairs ...string) (float64, error) {
	metric, err := findMetric(mfs, name, pairs...)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, pairs ...string) (float64, error) {
	metric, err := findMetric(mfs, name, pairs...)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(labels []*dto.LabelPair, pairs []string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		if labelValue(labels, pairs[i]) != pairs[i+1] {
			return false
		}
	}
	return true
}
