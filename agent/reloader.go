package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nstehr/ego/config"
	"github.com/nstehr/ego/rules"
)

// Reloader watches the config file in the background and swaps the rule
// set of every attached rule planner when the file changes. A file that
// fails to parse or compile leaves the running rules in place.
type Reloader struct {
	path     string
	interval time.Duration

	mu      sync.Mutex
	targets map[*rules.Planner]struct{}
	rules   []*rules.Rule // last good rule set
	modTime time.Time
}

// NewReloader polls path every interval (default 5s). Changes made after
// this call are picked up by Run.
func NewReloader(path string, interval time.Duration) *Reloader {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	r := &Reloader{
		path:     path,
		interval: interval,
		targets:  make(map[*rules.Planner]struct{}),
	}
	if info, err := os.Stat(path); err == nil {
		r.modTime = info.ModTime()
	}
	return r
}

// Attach registers a planner. If a document was reloaded since startup the
// planner receives it immediately.
func (r *Reloader) Attach(p *rules.Planner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[p] = struct{}{}
	if r.rules != nil {
		if err := p.Swap(r.rules); err != nil {
			slog.Warn("rule swap on attach failed", "planner", p.ID(), "error", err)
		}
	}
}

func (r *Reloader) Detach(p *rules.Planner) {
	r.mu.Lock()
	delete(r.targets, p)
	r.mu.Unlock()
}

// Run polls until ctx is done.
func (r *Reloader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(r.path)
			if err != nil {
				slog.Warn("config stat failed", "path", r.path, "error", err)
				continue
			}
			r.mu.Lock()
			changed := info.ModTime().After(r.modTime)
			if changed {
				r.modTime = info.ModTime()
			}
			r.mu.Unlock()
			if !changed {
				continue
			}
			if err := r.Reload(); err != nil {
				slog.Error("rule reload failed", "path", r.path, "error", err)
			}
		}
	}
}

// Reload reads the file now and swaps every attached planner. The document
// is compiled once up front so a bad file never reaches a planner.
func (r *Reloader) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return err
	}
	if _, err := rules.NewPlanner("validate", cfg.Rules, nil); err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = cfg.Rules
	for p := range r.targets {
		if err := p.Swap(cfg.Rules); err != nil {
			slog.Warn("rule swap failed", "planner", p.ID(), "error", err)
		}
	}
	slog.Info("rules reloaded", "path", r.path, "planners", len(r.targets), "rules", len(cfg.Rules))
	return nil
}
