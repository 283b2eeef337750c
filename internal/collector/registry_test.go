package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/augur/internal/core"
)

type mockCollector struct {
	name    string
	bars    []core.OHLCV
	err     error
	initErr error

	initCfg          Config
	gotStart, gotEnd time.Time
}

func (m *mockCollector) Name() string { return m.name }
func (m *mockCollector) Init(cfg Config) error {
	m.initCfg = cfg
	return m.initErr
}
func (m *mockCollector) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	m.gotStart, m.gotEnd = start, end
	return m.bars, m.err
}

func TestRegistry_GetAndNames(t *testing.T) {
	r := NewRegistry(&mockCollector{name: "yahoo"}, &mockCollector{name: "csv"})

	if c, ok := r.Get("csv"); !ok || c.Name() != "csv" {
		t.Fatalf("expected csv collector, got %v %v", c, ok)
	}
	if _, ok := r.Get("bloomberg"); ok {
		t.Error("unexpected collector for unknown name")
	}
	if names := r.Names(); len(names) != 2 || names[0] != "csv" || names[1] != "yahoo" {
		t.Errorf("expected [csv yahoo], got %v", names)
	}
}

func TestRegistry_Build(t *testing.T) {
	csv := &mockCollector{name: "csv"}
	r := NewRegistry(csv)

	c, err := r.Build("csv", Config{Path: "bars/{symbol}.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != csv || csv.initCfg.Path != "bars/{symbol}.csv" {
		t.Errorf("collector not initialized with config: %+v", csv.initCfg)
	}

	if _, err := r.Build("bloomberg", Config{}); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}

	broken := &mockCollector{name: "yahoo", initErr: errors.New("bad proxy")}
	r.Register(broken)
	if _, err := r.Build("yahoo", Config{}); err == nil {
		t.Error("expected init error")
	}
}
