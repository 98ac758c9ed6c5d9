// Package deploy writes generated crawler pages to a deployment target,
// verifies the result and reports per-run statistics.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

// ManifestFile is the name of the audit document written with each deployment.
const ManifestFile = "deployment-manifest.json"

// DefaultTopic is the event name used for completion notifications.
const DefaultTopic = "seo-deployments"

// Manager runs deployments against one writer.
type Manager struct {
	target    string
	writer    seo.Writer
	layout    seo.Layout
	logger    *zap.Logger
	clock     seo.Clock
	publisher seo.Publisher
	topic     string
	cleanup   bool

	run  sync.Mutex
	mu   sync.RWMutex
	last *seo.DeploymentStat
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLayout selects how logical paths map to files. The default is seo.LayoutFlat.
func WithLayout(l seo.Layout) Option {
	return func(m *Manager) {
		m.layout = l
	}
}

// WithClock overrides the timestamp source.
func WithClock(c seo.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithPublisher sends each finished DeploymentStat to pub under topic.
func WithPublisher(pub seo.Publisher, topic string) Option {
	return func(m *Manager) {
		m.publisher = pub
		if topic != "" {
			m.topic = topic
		}
	}
}

// WithCleanup enables removal of the previous run's files before writing.
func WithCleanup(enabled bool) Option {
	return func(m *Manager) {
		m.cleanup = enabled
	}
}

// NewManager returns a manager writing through w. target names the writer in
// stats, logs and metrics.
func NewManager(target string, w seo.Writer, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		target: target,
		writer: w,
		layout: seo.LayoutFlat,
		logger: logger,
		clock:  seo.SystemClock{},
		topic:  DefaultTopic,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target returns the writer name.
func (m *Manager) Target() string {
	return m.target
}

// LastRun returns the statistics of the most recent deployment, if any.
func (m *Manager) LastRun() (seo.DeploymentStat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return seo.DeploymentStat{}, false
	}
	return cloneStat(*m.last), true
}

// Deploy writes every file, records a manifest and verifies the result.
// Individual file failures are counted and never stop the batch; Deploy always
// returns the statistics of the run.
func (m *Manager) Deploy(ctx context.Context, files []seo.DeployFile, info seo.ManifestInfo) seo.DeploymentStat {
	m.run.Lock()
	defer m.run.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, "deploy.Run")
	defer span.End()

	start := time.Now()
	stat := seo.DeploymentStat{
		ID:             uuid.NewString(),
		Target:         m.target,
		Total:          len(files),
		FileTypeCounts: map[seo.FileType]int{},
		Timestamp:      m.clock.Now(),
		Errors:         []string{},
	}
	log := m.logger.With(zap.String("deployment_id", stat.ID), zap.String("target", m.target))
	log.Info("deployment started", zap.Int("files", len(files)))

	if m.cleanup {
		m.cleanupOld(ctx, log)
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		physical := m.layout.Map(f.Path)
		if err := m.writer.Write(ctx, physical, f.Content); err != nil {
			stat.Failed++
			stat.Errors = append(stat.Errors, fmt.Sprintf("%s (%s): %v", f.Path, physical, err))
			telemetry.ObserveDeployFile(m.target, false)
			log.Warn("file deployment failed", zap.String("path", f.Path), zap.String("file", physical), zap.Error(err))
			continue
		}
		stat.Succeeded++
		stat.FileTypeCounts[seo.ClassifyFile(f.Path)]++
		written = append(written, physical)
		telemetry.ObserveDeployFile(m.target, true)
	}

	if err := m.writeManifest(ctx, stat, info); err != nil {
		log.Warn("manifest write failed", zap.Error(err))
	}

	stat.VerificationPassed = m.verify(ctx, files, written, &stat, log)
	stat.Success = stat.Failed == 0 && stat.VerificationPassed
	stat.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("deploy.target", m.target),
		attribute.Int("deploy.total", stat.Total),
		attribute.Int("deploy.failed", stat.Failed),
		attribute.Bool("deploy.success", stat.Success),
	)
	if !stat.Success {
		span.SetStatus(codes.Error, "deployment incomplete")
	}
	telemetry.ObserveDeployRun(m.target, stat.Success, stat.Duration)

	log.Info("deployment finished",
		zap.Int("succeeded", stat.Succeeded),
		zap.Int("failed", stat.Failed),
		zap.Bool("verified", stat.VerificationPassed),
		zap.Bool("success", stat.Success),
		zap.Duration("duration", stat.Duration))

	m.mu.Lock()
	saved := cloneStat(stat)
	m.last = &saved
	m.mu.Unlock()

	m.notify(ctx, stat, log)
	return stat
}

func (m *Manager) cleanupOld(ctx context.Context, log *zap.Logger) {
	cleaner, ok := m.writer.(seo.Cleaner)
	if !ok {
		return
	}
	removed, err := cleaner.Cleanup(ctx)
	if err != nil {
		log.Warn("cleanup of previous deployment failed", zap.Int("removed", removed), zap.Error(err))
		return
	}
	log.Debug("removed previous deployment files", zap.Int("removed", removed))
}

func (m *Manager) writeManifest(ctx context.Context, stat seo.DeploymentStat, info seo.ManifestInfo) error {
	manifest := seo.DeploymentManifest{Deployment: seo.ManifestDeployment{
		Timestamp: stat.Timestamp,
		Stats:     stat,
		Generator: info.Generator,
		Version:   info.Version,
	}}
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := m.writer.Write(ctx, ManifestFile, body); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// verify requires a non-empty file list and every written file to be present.
func (m *Manager) verify(ctx context.Context, files []seo.DeployFile, written []string, stat *seo.DeploymentStat, log *zap.Logger) bool {
	if len(files) == 0 {
		stat.Errors = append(stat.Errors, "verification: no files to deploy")
		return false
	}
	passed := true
	for _, p := range written {
		ok, err := m.writer.Exists(ctx, p)
		switch {
		case err != nil:
			passed = false
			stat.Errors = append(stat.Errors, fmt.Sprintf("verification %s: %v", p, err))
		case !ok:
			passed = false
			stat.Errors = append(stat.Errors, fmt.Sprintf("verification %s: missing after write", p))
		}
	}
	if !passed {
		log.Warn("deployment verification failed")
	}
	return passed
}

func (m *Manager) notify(ctx context.Context, stat seo.DeploymentStat, log *zap.Logger) {
	if m.publisher == nil {
		return
	}
	id, err := m.publisher.Publish(ctx, m.topic, stat)
	if err != nil {
		log.Warn("deployment notification failed", zap.Error(err))
		return
	}
	log.Debug("deployment notification published", zap.String("message_id", id))
}

func cloneStat(s seo.DeploymentStat) seo.DeploymentStat {
	counts := make(map[seo.FileType]int, len(s.FileTypeCounts))
	for k, v := range s.FileTypeCounts {
		counts[k] = v
	}
	s.FileTypeCounts = counts
	s.Errors = append([]string(nil), s.Errors...)
	return s
}
