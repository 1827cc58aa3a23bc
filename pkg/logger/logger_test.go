package logger

import (
	"context"
	"testing"
)

func TestInitAndGet(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("sync: %v", err)
		}
	}()

	l := Get()
	if l == nil {
		t.Fatal("nil logger after Init")
	}

	ctx := context.Background()
	l.Info(ctx, "info line", String("k", "v"), Int("n", 1))
	l.Warn(ctx, "warn line", Float64("f", 0.5), Bool("b", true))
	l.Debug(ctx, "debug line", Any("x", struct{}{}))
	l.Error(ctx, "error line", Error(nil))

	named := l.Named("aggregator")
	if named == nil {
		t.Fatal("nil named logger")
	}
	named.Info(ctx, "named line", Int64("id", 7))
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("level %q: %v", level, err)
		}
	}

	if err := SetLevelString("shout"); err == nil {
		t.Error("expected error for unknown level")
	}
}
