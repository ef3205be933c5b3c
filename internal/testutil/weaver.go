package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/taskexec"
	"github.com/vk/classweave/internal/weaver"
)

// WeaveCall is one recorded weaver invocation.
type WeaveCall struct {
	Archive bool
	Src     string
	Dst     string
	SrcBase string
}

// RecordingWeaver implements weaver.Weaver. It copies sources to their
// destinations and records each call. Sources listed in Fail return an error.
type RecordingWeaver struct {
	mu        sync.Mutex
	calls     []WeaveCall
	Config    *config.Config
	ClassPath *weaver.ClassPath
	// ContextSets counts SetClassLoadingContext calls.
	ContextSets int
	// WovenBeforeContext counts weave calls made before any class path was set.
	WovenBeforeContext int
	Fail               map[string]error
}

func NewRecordingWeaver() *RecordingWeaver {
	return &RecordingWeaver{Fail: make(map[string]error)}
}

func (w *RecordingWeaver) Configure(cfg *config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Config = cfg
}

func (w *RecordingWeaver) SetClassLoadingContext(cp *weaver.ClassPath) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ClassPath = cp
	w.ContextSets++
}

func (w *RecordingWeaver) WeaveSingleClass(_ context.Context, src, dst, srcBase string) error {
	return w.weave(WeaveCall{Src: src, Dst: dst, SrcBase: srcBase})
}

func (w *RecordingWeaver) WeaveArchive(_ context.Context, src, dst string) error {
	return w.weave(WeaveCall{Archive: true, Src: src, Dst: dst})
}

func (w *RecordingWeaver) weave(call WeaveCall) error {
	w.mu.Lock()
	w.calls = append(w.calls, call)
	if w.ClassPath == nil {
		w.WovenBeforeContext++
	}
	failure := w.Fail[call.Src]
	w.mu.Unlock()

	if failure != nil {
		return failure
	}
	data, err := os.ReadFile(call.Src)
	if err != nil {
		return fmt.Errorf("recording weaver: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(call.Dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(call.Dst, data, 0o644)
}

// Calls returns the recorded calls sorted by source path.
func (w *RecordingWeaver) Calls() []WeaveCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]WeaveCall(nil), w.calls...)
	sort.Slice(out, func(i, j int) bool { return out[i].Src < out[j].Src })
	return out
}

// ArchiveCalls returns only the archive calls.
func (w *RecordingWeaver) ArchiveCalls() []WeaveCall {
	var out []WeaveCall
	for _, c := range w.Calls() {
		if c.Archive {
			out = append(out, c)
		}
	}
	return out
}

// CountingSubmitter wraps a submitter and records the name of every submission.
type CountingSubmitter struct {
	Next taskexec.Submitter

	mu    sync.Mutex
	names []string
}

func (c *CountingSubmitter) Submit(ctx context.Context, name string, fn taskexec.Func) {
	c.mu.Lock()
	c.names = append(c.names, name)
	c.mu.Unlock()
	c.Next.Submit(ctx, name, fn)
}

// Names returns the submission names in lexical order.
func (c *CountingSubmitter) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.names...)
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
