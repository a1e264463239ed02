package export

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Archiver periodically writes every channel's transcript to disk.
type Archiver struct {
	Exporter *Exporter
	Dir      string
	Format   Format
}

// NewArchiver creates an Archiver.
func NewArchiver(exp *Exporter, dir string, f Format) *Archiver {
	return &Archiver{Exporter: exp, Dir: dir, Format: f}
}

// RunOnce archives all channels now.
func (a *Archiver) RunOnce(ctx context.Context) ([]string, error) {
	return a.Exporter.WriteAll(ctx, a.Dir, a.Format)
}

// Run archives on a standard five-field cron schedule (descriptors such as
// "@hourly" also work) until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context, schedule string) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := a.RunOnce(ctx); err != nil {
			log.Printf("[Export] ❌ Archive failed: %v", err)
		}
	}))
	c.Start()
	log.Printf("[Export] ⏰ Archiving to %s on %q", a.Dir, schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
