// Quality metrics for converted scans
package metrics

import (
	"fmt"
	"sort"
	"time"

	"film-scanner/internal/core"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric value. Single-image metrics only look at processed.
	Calculate(original, processed *core.PixelBuffer) (float64, error)

	GetName() string
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate better quality
	IsHigherBetter() bool
}

// Registered metric keys.
const (
	KeyPSNR          = "psnr"
	KeySSIM          = "ssim"
	KeyMSE           = "mse"
	KeyContrastRatio = "contrast_ratio"
	KeySharpness     = "sharpness"
	KeyClipping      = "clipping"
	KeyDynamicRange  = "dynamic_range"
	KeyMeanLuma      = "mean_luma"
)

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator with every default metric registered
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register(KeyPSNR, NewPSNR())
	e.Register(KeySSIM, NewSSIM())
	e.Register(KeyMSE, NewMSE())
	e.Register(KeyContrastRatio, NewContrastRatio())
	e.Register(KeySharpness, NewSharpness())
	e.Register(KeyClipping, NewClipping())
	e.Register(KeyDynamicRange, NewDynamicRange())
	e.Register(KeyMeanLuma, NewMeanLuma())
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered keys in sorted order.
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed *core.PixelBuffer) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(original, processed)
}

// CalculateAll calculates all registered metrics. Metrics that cannot be
// computed for this pair, such as PSNR after a crop, are left out.
func (e *Evaluator) CalculateAll(original, processed *core.PixelBuffer) map[string]float64 {
	results := make(map[string]float64)
	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}
	return results
}

// EvaluateStep calculates the metrics relevant to one render stage
func (e *Evaluator) EvaluateStep(before, after *core.PixelBuffer, stage string) map[string]float64 {
	metrics := make(map[string]float64)

	keys := []string{KeyClipping, KeyMeanLuma}
	switch stage {
	case "negative":
		keys = append(keys, KeyDynamicRange)
	case "grading":
		keys = append(keys, KeyContrastRatio, KeySSIM)
	case "enhance":
		keys = append(keys, KeySharpness, KeyPSNR)
	}

	for _, key := range keys {
		if v, err := e.Calculate(key, before, after); err == nil {
			metrics[key] = v
		}
	}
	return metrics
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	info := make(map[string]MetricInfo)
	for name, metric := range e.metrics {
		lo, hi := metric.GetRange()
		info[name] = MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{lo, hi},
			HigherBetter: metric.IsHigherBetter(),
		}
	}
	return info
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

// QualityReport contains comprehensive quality assessment
type QualityReport struct {
	OverallScore float64            `json:"overall_score"`
	Metrics      map[string]float64 `json:"metrics"`
	Analysis     QualityAnalysis    `json:"analysis"`
	Timestamp    string             `json:"timestamp"`
}

// QualityAnalysis provides interpretation of metrics
type QualityAnalysis struct {
	QualityLevel string   `json:"quality_level"` // "excellent", "good", "fair", "poor"
	Issues       []string `json:"issues"`
	Suggestions  []string `json:"suggestions"`
}

// GenerateReport generates a quality report for a converted scan
func (e *Evaluator) GenerateReport(original, processed *core.PixelBuffer) QualityReport {
	metrics := e.CalculateAll(original, processed)
	return QualityReport{
		OverallScore: e.calculateOverallScore(metrics),
		Metrics:      metrics,
		Analysis:     e.analyzeQuality(metrics),
		Timestamp:    time.Now().Format("2006-01-02 15:04:05"),
	}
}

var scoreWeights = map[string]float64{
	KeyClipping:      0.4,
	KeyDynamicRange:  0.3,
	KeyContrastRatio: 0.15,
	KeySharpness:     0.15,
}

// calculateOverallScore is a weighted average of normalized metrics, as a percentage
func (e *Evaluator) calculateOverallScore(metrics map[string]float64) float64 {
	totalWeight := 0.0
	weightedSum := 0.0
	for name, weight := range scoreWeights {
		if value, exists := metrics[name]; exists {
			weightedSum += e.normalizeMetric(name, value) * weight
			totalWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return (weightedSum / totalWeight) * 100
}

// normalizeMetric normalizes a metric value to 0-1 range
func (e *Evaluator) normalizeMetric(name string, value float64) float64 {
	metric, exists := e.metrics[name]
	if !exists {
		return 0
	}

	lo, hi := metric.GetRange()
	value = max(lo, min(hi, value))
	if hi == lo {
		return 1.0
	}

	normalized := (value - lo) / (hi - lo)
	if !metric.IsHigherBetter() {
		normalized = 1.0 - normalized
	}
	return normalized
}

func (e *Evaluator) analyzeQuality(metrics map[string]float64) QualityAnalysis {
	analysis := QualityAnalysis{
		Issues:      make([]string, 0),
		Suggestions: make([]string, 0),
	}

	overallScore := e.calculateOverallScore(metrics)
	switch {
	case overallScore >= 90:
		analysis.QualityLevel = "excellent"
	case overallScore >= 75:
		analysis.QualityLevel = "good"
	case overallScore >= 60:
		analysis.QualityLevel = "fair"
	default:
		analysis.QualityLevel = "poor"
	}

	if clipping, exists := metrics[KeyClipping]; exists && clipping > 0.05 {
		analysis.Issues = append(analysis.Issues, "More than 5% of pixels are clipped to black or white")
		analysis.Suggestions = append(analysis.Suggestions, "Lower contrast or brightness")
	}
	if dr, exists := metrics[KeyDynamicRange]; exists && dr < 0.5 {
		analysis.Issues = append(analysis.Issues, "Tones occupy less than half of the output range")
		analysis.Suggestions = append(analysis.Suggestions, "Raise contrast or check the film type")
	}
	if luma, exists := metrics[KeyMeanLuma]; exists {
		switch {
		case luma < 60:
			analysis.Issues = append(analysis.Issues, "Image is dark overall")
			analysis.Suggestions = append(analysis.Suggestions, "Increase brightness")
		case luma > 195:
			analysis.Issues = append(analysis.Issues, "Image is bright overall")
			analysis.Suggestions = append(analysis.Suggestions, "Decrease brightness")
		}
	}
	return analysis
}
