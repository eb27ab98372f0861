// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// constant returns a hook that ignores its input and yields v.
func constant(v any) HookFunc {
	return func(context.Context, any) (any, error) { return v, nil }
}

func TestHookRegistryRegister(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	registry.RegisterFunc(HookEventAfterDelete, "cleanup", "layout", constant(nil))

	if !registry.HasHandlers(HookEventAfterDelete) {
		t.Error("HasHandlers() = false, want true")
	}
	if count := registry.HandlerCount(HookEventAfterDelete); count != 1 {
		t.Errorf("HandlerCount() = %d, want 1", count)
	}
	if registry.HasHandlers("unknown.hook") {
		t.Error("HasHandlers() = true for a hook nobody registered")
	}

	infos := registry.ListHookInfo()
	if len(infos) != 1 || infos[0].Handlers[0].Module != "layout" {
		t.Errorf("ListHookInfo() = %+v, want one layout handler", infos)
	}
}

func TestHookRegistryPriorityOrder(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	for _, h := range []struct {
		name     string
		priority int
	}{
		{"late", 10},
		{"first-zero", 0},
		{"early", -5},
		{"second-zero", 0},
	} {
		registry.Register("order", HookHandler{Name: h.name, Module: "m", Priority: h.priority, Fn: constant(h.name)})
	}

	got, err := registry.Collect(context.Background(), "order", nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := []any{"early", "first-zero", "second-zero", "late"}
	if !slices.Equal(got, want) {
		t.Errorf("Collect() = %v, want %v", got, want)
	}
}

func TestHookRegistryCallChain(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	appendTo := func(suffix string) HookFunc {
		return func(_ context.Context, data any) (any, error) {
			return data.(string) + suffix, nil
		}
	}
	registry.RegisterFunc("chain", "a", "m", appendTo("-a"))
	registry.RegisterFunc("chain", "b", "m", appendTo("-b"))

	got, err := registry.Call(context.Background(), "chain", "start")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "start-a-b" {
		t.Errorf("Call() = %v, want start-a-b", got)
	}

	// No handlers: data is returned unchanged.
	got, err = registry.Call(context.Background(), "nothing", 42)
	if err != nil || got != 42 {
		t.Errorf("Call() without handlers = %v, %v; want 42, nil", got, err)
	}
}

func TestHookRegistryCollectPassesSameData(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	var seen []any
	record := func(_ context.Context, data any) (any, error) {
		seen = append(seen, data)
		return "ignored", nil
	}
	registry.RegisterFunc("fan", "a", "m", record)
	registry.RegisterFunc("fan", "b", "m", record)

	if _, err := registry.Collect(context.Background(), "fan", 7); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !slices.Equal(seen, []any{7, 7}) {
		t.Errorf("handlers saw %v, want [7 7]", seen)
	}

	results, err := registry.Collect(context.Background(), "empty", nil)
	if err != nil || len(results) != 0 {
		t.Errorf("Collect() without handlers = %v, %v; want empty, nil", results, err)
	}
}

func TestHookRegistryCollectError(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	errBroken := errors.New("broken")

	calledAfter := false
	registry.RegisterFunc("fan", "ok", "m", constant(1))
	registry.RegisterFunc("fan", "bad", "m", func(context.Context, any) (any, error) { return nil, errBroken })
	registry.RegisterFunc("fan", "after", "m", func(context.Context, any) (any, error) {
		calledAfter = true
		return 3, nil
	})

	results, err := registry.Collect(context.Background(), "fan", nil)
	if !errors.Is(err, errBroken) {
		t.Fatalf("Collect() error = %v, want wrapped errBroken", err)
	}
	if err.Error() != "hook fan handler bad: broken" {
		t.Errorf("error text = %q", err.Error())
	}
	if results != nil {
		t.Errorf("results = %v, want nil on error", results)
	}
	if calledAfter {
		t.Error("handlers after a failing one must not run")
	}

	if err := registry.CallNoResult(context.Background(), "fan", nil); !errors.Is(err, errBroken) {
		t.Errorf("CallNoResult() error = %v, want wrapped errBroken", err)
	}
}

func TestHookRegistrySkipsInactiveModules(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	registry.RegisterFunc("fan", "on", "enabled", constant("on"))
	registry.RegisterFunc("fan", "off", "disabled", constant("off"))
	registry.SetIsModuleActive(func(name string) bool { return name != "disabled" })

	got, err := registry.Collect(context.Background(), "fan", nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !slices.Equal(got, []any{"on"}) {
		t.Errorf("Collect() = %v, want [on]", got)
	}
}

func TestHookRegistryUnregisterAll(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	registry.RegisterFunc("one", "a", "layout", constant(nil))
	registry.RegisterFunc("one", "b", "other", constant("b"))
	registry.RegisterFunc("two", "c", "layout", constant(nil))

	registry.UnregisterAll("layout")
	if n := registry.HandlerCount("one"); n != 1 {
		t.Errorf("HandlerCount(one) = %d, want 1", n)
	}
	if registry.HasHandlers("two") {
		t.Error("UnregisterAll should drop every layout handler")
	}

	got, err := registry.Collect(context.Background(), "one", nil)
	if err != nil || !slices.Equal(got, []any{"b"}) {
		t.Errorf("Collect() = %v, %v; want [b], nil", got, err)
	}
}

func TestHookRegistryListHookInfoSorted(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	registry.RegisterFunc(HookEventBeforeDelete, "veto", "layout", constant(nil))
	registry.RegisterFunc(HookEventAfterDelete, "cleanup", "layout", constant(nil))

	infos := registry.ListHookInfo()
	if len(infos) != 2 {
		t.Fatalf("ListHookInfo() = %+v, want two hooks", infos)
	}
	if infos[0].Name != HookEventAfterDelete || infos[1].Name != HookEventBeforeDelete {
		t.Errorf("hook order = %s, %s", infos[0].Name, infos[1].Name)
	}
}

func TestHookRegistryConcurrentCollect(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	registry.RegisterFunc("fan", "a", "m", constant(1))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				registry.RegisterFunc("fan", "extra", "m", constant(2))
				return
			}
			if _, err := registry.Collect(context.Background(), "fan", nil); err != nil {
				t.Errorf("Collect() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := registry.HandlerCount("fan"); n != 5 {
		t.Errorf("HandlerCount() = %d, want 5", n)
	}
}
