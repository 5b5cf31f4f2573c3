package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"

	"flatbuild/internal/ports"
)

// MetricsFileAdapter counts resolution events on a private registry and
// writes them in the node exporter textfile format.
type MetricsFileAdapter struct {
	Path     string
	registry *prometheus.Registry

	projectsParsed  prometheus.Counter
	packageOutcomes *prometheus.CounterVec
	compilerRuns    *prometheus.CounterVec
	walkDuration    prometheus.Histogram
}

func NewMetricsFileAdapter(path string) *MetricsFileAdapter {
	a := &MetricsFileAdapter{
		Path:     path,
		registry: prometheus.NewRegistry(),
		projectsParsed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flatbuild_projects_parsed_total",
				Help: "Number of project descriptors parsed.",
			},
		),
		packageOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatbuild_packages_total",
				Help: "Package references by resolution outcome.",
			},
			[]string{"outcome"},
		),
		compilerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatbuild_compiler_invocations_total",
				Help: "Compiler invocations by result.",
			},
			[]string{"result"},
		),
		walkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flatbuild_walk_duration_seconds",
				Help:    "Time taken to walk the project graph.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	a.registry.MustRegister(a.projectsParsed, a.packageOutcomes, a.compilerRuns, a.walkDuration)
	return a
}

func (a *MetricsFileAdapter) ProjectParsed(string) {
	a.projectsParsed.Inc()
}

func (a *MetricsFileAdapter) PackageResolved(string, string) {
	a.packageOutcomes.WithLabelValues("resolved").Inc()
}

func (a *MetricsFileAdapter) PackageUnresolved(string) {
	a.packageOutcomes.WithLabelValues("unresolved").Inc()
}

func (a *MetricsFileAdapter) PackageExcluded(string) {
	a.packageOutcomes.WithLabelValues("excluded").Inc()
}

func (a *MetricsFileAdapter) CompilerInvoked(exitCode int) {
	result := "success"
	if exitCode != 0 {
		result = "failure"
	}
	a.compilerRuns.WithLabelValues(result).Inc()
}

func (a *MetricsFileAdapter) WalkFinished(duration time.Duration) {
	a.walkDuration.Observe(duration.Seconds())
}

// Registry exposes the collectors, mainly for tests.
func (a *MetricsFileAdapter) Registry() *prometheus.Registry {
	return a.registry
}

// Flush writes the textfile. An empty Path is a no-op.
func (a *MetricsFileAdapter) Flush() error {
	if strings.TrimSpace(a.Path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create metrics directory").
			WithCause(err)
	}
	if err := prometheus.WriteToTextfile(a.Path, a.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics file").
			WithCause(err)
	}
	return nil
}

var _ ports.ResolutionObserverPort = (*MetricsFileAdapter)(nil)
