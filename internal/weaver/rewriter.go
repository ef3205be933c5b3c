package weaver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zip"

	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/fsutil"
)

// ClassVisitor transforms the bytes of one class. className is the internal
// name, e.g. "com/example/Foo". Visitors may run concurrently and must only
// read from cp.
type ClassVisitor func(className string, data []byte, cp *ClassPath) ([]byte, error)

var classMagic = []byte{0xCA, 0xFE, 0xBA, 0xBE}

// ErrNotClassFile is returned by VerifyClass for data without the class magic.
var ErrNotClassFile = errors.New("not a class file")

// VerifyClass is a ClassVisitor that leaves classes unchanged after checking
// their magic number.
func VerifyClass(className string, data []byte, _ *ClassPath) ([]byte, error) {
	if !bytes.HasPrefix(data, classMagic) {
		return nil, fmt.Errorf("%s: %w", className, ErrNotClassFile)
	}
	return data, nil
}

// IsWeavable reports whether an entry, named with forward slashes relative to
// its class root, should be handed to the visitor. Resources, metadata and
// generated resource/build-config classes are copied as they are.
func IsWeavable(name string) bool {
	if !strings.HasSuffix(name, ".class") || strings.HasPrefix(name, "META-INF/") {
		return false
	}
	base := path.Base(name)
	switch {
	case base == "module-info.class", base == "R.class", base == "BuildConfig.class":
		return false
	case strings.HasPrefix(base, "R$"):
		return false
	}
	return true
}

// Rewriter is the reference Weaver. It runs a ClassVisitor over every
// weavable class of a file or archive and copies everything else.
type Rewriter struct {
	visit ClassVisitor
	cfg   atomic.Pointer[config.Config]
	cp    atomic.Pointer[ClassPath]
}

// NewRewriter returns a Rewriter applying visit. A nil visit means VerifyClass.
func NewRewriter(visit ClassVisitor) *Rewriter {
	if visit == nil {
		visit = VerifyClass
	}
	return &Rewriter{visit: visit}
}

func (r *Rewriter) Configure(cfg *config.Config) { r.cfg.Store(cfg) }

func (r *Rewriter) SetClassLoadingContext(cp *ClassPath) { r.cp.Store(cp) }

func (r *Rewriter) verbose() bool {
	cfg := r.cfg.Load()
	return cfg != nil && cfg.Log
}

// WeaveSingleClass rewrites src into dst. srcBase is the class root src lives
// under; it determines the class name.
func (r *Rewriter) WeaveSingleClass(ctx context.Context, src, dst, srcBase string) error {
	rel, err := filepath.Rel(srcBase, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("weave %s: not under %s", src, srcBase)
	}
	name := filepath.ToSlash(rel)
	if r.verbose() {
		ctxlog.FromContext(ctx).Info("Weaving class.", "class", name, "dst", dst)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("weave %s: %w", src, err)
	}
	if IsWeavable(name) {
		className := strings.TrimSuffix(name, ".class")
		cp := r.cp.Load()
		r.checkClassPath(ctx, className, srcBase, cp)
		if data, err = r.visit(className, data, cp); err != nil {
			return fmt.Errorf("weave %s: %w", src, err)
		}
	}
	if err := fsutil.EnsureParent(dst); err != nil {
		return fmt.Errorf("weave %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("weave %s: %w", src, err)
	}
	return nil
}

// checkClassPath warns about classes the class-loading context cannot place
// consistently: a class root missing from the context, and, in duplicated
// class safe mode, a class defined by more than one directory entry.
func (r *Rewriter) checkClassPath(ctx context.Context, className, srcBase string, cp *ClassPath) {
	if cp.Len() == 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)
	if !cp.Contains(srcBase) {
		logger.Debug("Class root is not on the class path.", "class", className, "root", srcBase)
	}
	if cfg := r.cfg.Load(); cfg != nil && cfg.DuplicatedClassSafeMode {
		if dirs := cp.LocateDir(className); len(dirs) > 1 {
			logger.Warn("Class is defined in more than one class path directory.", "class", className, "dirs", dirs)
		}
	}
}

// WeaveArchive rewrites every weavable class entry of src into a new archive
// at dst. Other entries are copied without recompression. Entry order and
// headers are preserved, so equal inputs give byte-identical outputs.
func (r *Rewriter) WeaveArchive(ctx context.Context, src, dst string) (err error) {
	if r.verbose() {
		ctxlog.FromContext(ctx).Info("Weaving archive.", "src", src, "dst", dst)
	}
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("weave archive %s: %w", src, err)
	}
	defer zr.Close()

	if err := fsutil.EnsureParent(dst); err != nil {
		return fmt.Errorf("weave archive %s: %w", src, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("weave archive %s: %w", src, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("weave archive %s: %w", src, cerr)
		}
		if err != nil {
			// A partial archive must not survive into a later incremental run.
			if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
				err = errors.Join(err, rmErr)
			}
		}
	}()

	zw := zip.NewWriter(out)
	for _, f := range zr.File {
		if err := r.weaveEntry(zw, f); err != nil {
			return fmt.Errorf("weave archive %s: entry %s: %w", src, f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("weave archive %s: %w", src, err)
	}
	return nil
}

func (r *Rewriter) weaveEntry(zw *zip.Writer, f *zip.File) error {
	if f.FileInfo().IsDir() || !IsWeavable(f.Name) {
		return zw.Copy(f)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return err
	}
	woven, err := r.visit(strings.TrimSuffix(f.Name, ".class"), data, r.cp.Load())
	if err != nil {
		return err
	}
	header := f.FileHeader
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(&header)
	if err != nil {
		return err
	}
	_, err = w.Write(woven)
	return err
}
