package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/bus"
	"github.com/folio-org/mod-data-export-spring-sub001/engine"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
	"github.com/folio-org/mod-data-export-spring-sub001/store/memory"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

const testConfigID = "5fa31c82-079f-4ad9-9a5e-1e62d5a088b0"

type stubSource struct {
	mu      sync.Mutex
	configs map[string]*export.Config
}

func (s *stubSource) GetConfigByID(_ context.Context, _, configID string) (*export.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.configs[configID]; ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: %s", dataexport.ErrConfigNotFound, configID)
}

func (s *stubSource) GetConfigCollection(context.Context, string, string, int) ([]*export.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*export.Config
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

type stubRecorder struct {
	mu   sync.Mutex
	jobs int
}

func (r *stubRecorder) UpsertJob(_ context.Context, job *export.Job) (*export.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs++
	cp := *job
	cp.ID = fmt.Sprintf("job-%d", r.jobs)
	return &cp, nil
}

func (r *stubRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs
}

func hourlyConfig() *export.Config {
	return &export.Config{
		ID:                testConfigID,
		Tenant:            "diku",
		Type:              export.TypeCirculationLog,
		SchedulePeriod:    schedule.PeriodHour,
		ScheduleFrequency: 1,
	}
}

func TestBuildRequiresStore(t *testing.T) {
	_, err := engine.Build(nil, &stubSource{}, &stubRecorder{})
	if !errors.Is(err, dataexport.ErrNoStore) {
		t.Fatalf("Build(nil store) = %v, want ErrNoStore", err)
	}
}

func TestBuildAndApply(t *testing.T) {
	st := memory.New()
	t.Cleanup(func() { st.Close() })

	source := &stubSource{configs: map[string]*export.Config{testConfigID: hourlyConfig()}}
	eng, err := engine.Build(st, source, &stubRecorder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	job, err := eng.Apply(ctx, hourlyConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if job.Disabled || len(job.Triggers) != 1 {
		t.Fatalf("scheduled job = %+v, want one enabled trigger", job)
	}

	exists, err := st.TriggerExists(ctx, job.Identity)
	if err != nil || !exists {
		t.Fatalf("TriggerExists = %v, %v; want true", exists, err)
	}

	if err := eng.Delete(ctx, job.Identity); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, _ = st.TriggerExists(ctx, job.Identity)
	if exists {
		t.Fatal("trigger still registered after Delete")
	}
}

func TestEngineFiresEndToEnd(t *testing.T) {
	st := memory.New()
	t.Cleanup(func() { st.Close() })

	source := &stubSource{configs: map[string]*export.Config{testConfigID: hourlyConfig()}}
	recorder := &stubRecorder{}

	cfg := dataexport.DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond
	cfg.HeartbeatInterval = 0
	cfg.DeadWorkerThreshold = 0

	eng, err := engine.Build(st, source, recorder, engine.WithConfig(cfg))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	broker, ok := eng.Publisher().(*bus.Broker)
	if !ok {
		t.Fatalf("default publisher is %T, want the in-process broker", eng.Publisher())
	}
	commands, cancel := broker.Subscribe(bus.TopicJobCommands)
	defer cancel()

	ctx := context.Background()
	if _, err := eng.Apply(ctx, hourlyConfig()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Make the sole trigger immediately due.
	ident := trigger.Identity{Group: "diku_scheduledExport", Name: testConfigID}
	regs, err := st.GetTriggers(ctx, ident)
	if err != nil || len(regs) != 1 {
		t.Fatalf("GetTriggers = %v, %v; want one trigger", regs, err)
	}
	due := time.Now().UTC().Add(-time.Second)
	regs[0].NextRunAt = &due
	if err := st.UpdateTrigger(ctx, regs[0]); err != nil {
		t.Fatalf("UpdateTrigger: %v", err)
	}

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		if err := eng.Stop(stopCtx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	select {
	case msg := <-commands:
		if msg.Key != "diku" {
			t.Errorf("command key = %q, want tenant", msg.Key)
		}
		if msg.Codec != export.CodecNameJSON {
			t.Errorf("command codec = %q, want json", msg.Codec)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no job command published before deadline")
	}

	if recorder.count() == 0 {
		t.Error("no job record created")
	}
}
