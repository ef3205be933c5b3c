package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/ctxlog"
)

// LoadInvocation reads an invocation manifest and binds it to outputs.
// Relative artifact paths resolve against the manifest's directory, and
// changed_files keys resolve against their directory input.
func (l *Loader) LoadInvocation(ctx context.Context, path string, outputs artifact.OutputProvider) (*artifact.Invocation, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}
	var root manifestRoot
	if diags := gohcl.DecodeBody(hclFile.Body, l.evalContext(""), &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}
	if root.Invocation == nil {
		return nil, fmt.Errorf("manifest %s has no invocation block", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(abs)
	inv := &artifact.Invocation{
		Incremental: root.Invocation.Incremental,
		VariantName: root.Invocation.Variant,
		Outputs:     outputs,
	}
	if inv.Inputs, err = translateInputs(base, root.Invocation.Inputs); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if inv.ReferencedInputs, err = translateInputs(base, root.Invocation.Referenced); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	logger.Debug("Invocation manifest loaded.", "path", path, "inputs", len(inv.Inputs), "referenced", len(inv.ReferencedInputs), "incremental", inv.Incremental)
	return inv, nil
}

func translateInputs(base string, blocks []*inputBlock) ([]artifact.Input, error) {
	var out []artifact.Input
	for _, b := range blocks {
		var in artifact.Input
		for _, a := range b.Archives {
			status, err := artifact.ParseStatus(a.Status)
			if err != nil {
				return nil, fmt.Errorf("archive %s: %w", a.Path, err)
			}
			in.Archives = append(in.Archives, artifact.ArchiveArtifact{
				Path:         resolve(base, a.Path),
				ContentTypes: contentTypes(a.ContentTypes),
				Scopes:       scopes(a.Scopes),
				Status:       status,
			})
		}
		for _, d := range b.Directories {
			dir := artifact.DirectoryArtifact{
				Name:         d.Name,
				Path:         resolve(base, d.Path),
				ContentTypes: contentTypes(d.ContentTypes),
				Scopes:       scopes(d.Scopes),
			}
			if len(d.ChangedFiles) > 0 {
				dir.ChangedFiles = make(map[string]artifact.Status, len(d.ChangedFiles))
				for rel, raw := range d.ChangedFiles {
					status, err := artifact.ParseStatus(raw)
					if err != nil {
						return nil, fmt.Errorf("directory %s, file %s: %w", d.Path, rel, err)
					}
					dir.ChangedFiles[resolve(dir.Path, filepath.FromSlash(rel))] = status
				}
			}
			in.Directories = append(in.Directories, dir)
		}
		out = append(out, in)
	}
	return out, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func contentTypes(raw []string) []artifact.ContentType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]artifact.ContentType, len(raw))
	for i, s := range raw {
		out[i] = artifact.ContentType(s)
	}
	return out
}

func scopes(raw []string) []artifact.Scope {
	if len(raw) == 0 {
		return nil
	}
	out := make([]artifact.Scope, len(raw))
	for i, s := range raw {
		out[i] = artifact.Scope(s)
	}
	return out
}
