// Package checkpoint persists trained parameters as a directory holding one
// plain-text file per matrix (W1, b1, ..., WL, bL) plus a manifest.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"digitnet/internal/matrix"
	"digitnet/internal/model"
)

// Save writes p to dir. dir must be absent, empty, or a previous checkpoint
// (it holds W1 or a manifest); anything else is refused with
// ErrNotCheckpoint. Files are written to a sibling temporary directory, the
// previous checkpoint is renamed aside, the new one renamed into place and
// only then is the old one removed. A failed swap restores the previous
// checkpoint.
func Save(dir string, p *model.Params, meta Manifest) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	exists, err := replaceable(dir)
	if err != nil {
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(tmp)
		}
	}()

	for i, l := range p.Layers {
		if err := writeMatrixFile(filepath.Join(tmp, weightName(i)), l.Weights); err != nil {
			return err
		}
		if err := writeMatrixFile(filepath.Join(tmp, biasName(i)), l.Bias); err != nil {
			return err
		}
	}
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %v", ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(tmp, ManifestFile), raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var old string
	if exists {
		old = tmp + ".old"
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("%w: move aside %s: %v", ErrPersistence, dir, err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			os.Rename(old, dir)
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	committed = true
	if old != "" {
		os.RemoveAll(old)
	}
	return nil
}

// replaceable reports whether dir exists, failing when it exists but may not
// be overwritten.
func replaceable(dir string) (bool, error) {
	info, err := os.Lstat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%w: %s is not a directory", ErrNotCheckpoint, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(entries) == 0 {
		return true, nil
	}
	for _, e := range entries {
		if name := e.Name(); name == weightName(0) || name == ManifestFile {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrNotCheckpoint, dir)
}

// Load reads a parameter set written by Save. Layers are discovered by
// probing W1, b1, W2, b2, ... until W<n> is absent. When the directory
// carries no manifest, hidden layers default to ReLU and the last to Softmax.
// The returned manifest is nil in that case.
func Load(dir string) (*model.Params, *Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrPersistence, dir)
	}

	p := &model.Params{}
	for i := 0; ; i++ {
		w, err := readMatrixFile(filepath.Join(dir, weightName(i)))
		if errors.Is(err, fs.ErrNotExist) {
			if i == 0 {
				return nil, nil, fmt.Errorf("%w: %s", ErrMissingSlot, weightName(i))
			}
			break
		}
		if err != nil {
			return nil, nil, err
		}
		b, err := readMatrixFile(filepath.Join(dir, biasName(i)))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingSlot, biasName(i))
		}
		if err != nil {
			return nil, nil, err
		}
		p.Layers = append(p.Layers, model.Layer{Weights: w, Bias: b})
	}

	meta, err := readManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	kinds := model.DefaultActivations(len(p.Layers))
	if meta != nil && len(meta.Activations) > 0 {
		if len(meta.Activations) != len(p.Layers) {
			return nil, nil, fmt.Errorf("%w: manifest lists %d activations for %d layers",
				ErrMalformed, len(meta.Activations), len(p.Layers))
		}
		kinds = meta.Activations
	}
	for i := range p.Layers {
		p.Layers[i].Activation = kinds[i]
	}

	if err := p.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p, meta, nil
}

func readManifest(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	var meta Manifest
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrMalformed, err)
	}
	return &meta, nil
}

func weightName(i int) string { return fmt.Sprintf("W%d", i+1) }

func biasName(i int) string { return fmt.Sprintf("b%d", i+1) }

func writeMatrixFile(path string, m *matrix.Dense) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %v", ErrPersistence, cerr)
		}
	}()
	if err := WriteMatrix(f, m); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, filepath.Base(path), err)
	}
	return nil
}

// readMatrixFile returns fs.ErrNotExist as is so Load can tell an absent
// slot from a broken one.
func readMatrixFile(path string) (*matrix.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer f.Close()
	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}
