package weaver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/ctxlog"
)

func classBytes(body string) []byte {
	return append([]byte{0xCA, 0xFE, 0xBA, 0xBE}, body...)
}

// upper is a visitor that makes class bodies observable in assertions.
func upper(_ string, data []byte, _ *ClassPath) ([]byte, error) {
	return append(data[:4:4], bytes.ToUpper(data[4:])...), nil
}

func writeArchive(t *testing.T, path string, entries map[string][]byte, order []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(data)
	}
	return out
}

func TestIsWeavable(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]bool{
		"com/a/Foo.class":           true,
		"com/a/Foo$Inner.class":     true,
		"com/a/R.class":             false,
		"com/a/R$string.class":      false,
		"com/a/BuildConfig.class":   false,
		"module-info.class":         false,
		"META-INF/versions/A.class": false,
		"com/a/strings.xml":         false,
	} {
		assert.Equal(t, want, IsWeavable(name), name)
	}
}

func TestWeaveSingleClass(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "com", "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "com", "a", "Foo.class"), classBytes("foo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "com", "a", "R.class"), classBytes("res"), 0o644))

	var seen []string
	w := NewRewriter(func(name string, data []byte, cp *ClassPath) ([]byte, error) {
		seen = append(seen, name)
		return upper(name, data, cp)
	})
	w.Configure(config.Default())
	ctx := context.Background()

	out := filepath.Join(dst, "com", "a", "Foo.class")
	require.NoError(t, w.WeaveSingleClass(ctx, filepath.Join(src, "com", "a", "Foo.class"), out, src))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, classBytes("FOO"), data)

	rOut := filepath.Join(dst, "com", "a", "R.class")
	require.NoError(t, w.WeaveSingleClass(ctx, filepath.Join(src, "com", "a", "R.class"), rOut, src))
	data, err = os.ReadFile(rOut)
	require.NoError(t, err)
	assert.Equal(t, classBytes("res"), data, "R classes are copied untouched")

	assert.Equal(t, []string{"com/a/Foo"}, seen)

	err = w.WeaveSingleClass(ctx, filepath.Join(src, "com", "a", "Foo.class"), out, dst)
	require.Error(t, err, "source outside srcBase must be rejected")
}

func TestVerifyClass_RejectsGarbage(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	path := filepath.Join(src, "Bad.class")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	err := NewRewriter(nil).WeaveSingleClass(context.Background(), path, filepath.Join(t.TempDir(), "Bad.class"), src)
	require.ErrorIs(t, err, ErrNotClassFile)
}

func TestWeaveArchive_RewritesClassesAndKeepsResources(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "lib.jar")
	order := []string{"META-INF/MANIFEST.MF", "com/a/Foo.class", "com/a/R$id.class", "assets/x.txt"}
	writeArchive(t, src, map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
		"com/a/Foo.class":      classBytes("foo"),
		"com/a/R$id.class":     classBytes("rid"),
		"assets/x.txt":         []byte("text"),
	}, order)

	w := NewRewriter(upper)
	dst := filepath.Join(dir, "out", "nested", "lib.jar")
	require.NoError(t, w.WeaveArchive(context.Background(), src, dst))

	got := readArchive(t, dst)
	assert.Equal(t, string(classBytes("FOO")), got["com/a/Foo.class"])
	assert.Equal(t, string(classBytes("rid")), got["com/a/R$id.class"])
	assert.Equal(t, "text", got["assets/x.txt"])
	assert.True(t, strings.HasPrefix(got["META-INF/MANIFEST.MF"], "Manifest-Version"))

	again := filepath.Join(dir, "again.jar")
	require.NoError(t, w.WeaveArchive(context.Background(), src, again))
	a, err := os.ReadFile(dst)
	require.NoError(t, err)
	b, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, a, b, "weaving the same archive twice must be byte-identical")
}

func TestWeaveArchive_MissingSource(t *testing.T) {
	t.Parallel()
	err := NewRewriter(nil).WeaveArchive(context.Background(), filepath.Join(t.TempDir(), "none.jar"), filepath.Join(t.TempDir(), "o.jar"))
	require.Error(t, err)
}

func TestNewClassPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "classes", "com"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "classes", "com", "A.class"), classBytes(""), 0o644))

	inv := &artifact.Invocation{
		Incremental: true,
		Inputs: []artifact.Input{{
			Archives: []artifact.ArchiveArtifact{
				{Path: "/libs/a.jar", Status: artifact.Changed},
				{Path: "/libs/gone.jar", Status: artifact.Removed},
			},
			Directories: []artifact.DirectoryArtifact{{Path: filepath.Join(root, "classes")}},
		}},
		ReferencedInputs: []artifact.Input{{
			Archives: []artifact.ArchiveArtifact{{Path: "/sdk/android.jar"}, {Path: "/libs/a.jar"}},
		}},
	}

	cp := NewClassPath(inv)
	assert.Equal(t, []string{"/libs/a.jar", filepath.Join(root, "classes"), "/sdk/android.jar"}, cp.Entries())
	assert.False(t, cp.Contains("/libs/gone.jar"))
	assert.True(t, cp.Contains("/sdk/android.jar"))
	assert.Equal(t, []string{filepath.Join(root, "classes")}, cp.LocateDir("com/A"))
	assert.Empty(t, cp.LocateDir("com/Missing"))

	var nilCP *ClassPath
	assert.Zero(t, nilCP.Len())
}

func TestWeaveArchive_FailureRemovesPartialOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "lib.jar")
	writeArchive(t, src, map[string][]byte{
		"com/a/Good.class": classBytes("good"),
		"com/a/Bad.class":  []byte("not a class"),
	}, []string{"com/a/Good.class", "com/a/Bad.class"})
	dst := filepath.Join(dir, "out", "lib.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, []byte("output of an earlier run"), 0o644))

	err := NewRewriter(nil).WeaveArchive(context.Background(), src, dst)
	require.ErrorIs(t, err, ErrNotClassFile)
	assert.NoFileExists(t, dst)
}

func TestWeaveSingleClass_ChecksClassPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	stray := filepath.Join(root, "stray")
	for _, d := range []string{first, second, stray} {
		require.NoError(t, os.MkdirAll(filepath.Join(d, "com"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(d, "com", "A.class"), classBytes("a"), 0o644))
	}
	inv := &artifact.Invocation{Inputs: []artifact.Input{{
		Directories: []artifact.DirectoryArtifact{{Path: first}, {Path: second}},
	}}}

	weave := func(safeMode bool, base string) string {
		var buf bytes.Buffer
		ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
		cfg := config.Default()
		cfg.DuplicatedClassSafeMode = safeMode
		w := NewRewriter(nil)
		w.Configure(cfg)
		w.SetClassLoadingContext(NewClassPath(inv))
		require.NoError(t, w.WeaveSingleClass(ctx, filepath.Join(base, "com", "A.class"), filepath.Join(t.TempDir(), "A.class"), base))
		return buf.String()
	}

	logs := weave(true, first)
	assert.Contains(t, logs, "Class is defined in more than one class path directory.")
	assert.NotContains(t, logs, "Class root is not on the class path.")

	assert.NotContains(t, weave(false, first), "more than one class path directory")
	assert.Contains(t, weave(false, stray), "Class root is not on the class path.")
}
