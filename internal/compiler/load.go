package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/storyboard/internal/ir"
)

// LoadScenario compiles the scenario at path. path is either a single .cue
// file or a directory holding one CUE instance.
func LoadScenario(path string) (ir.Scenario, error) {
	v, err := LoadValue(path)
	if err != nil {
		return ir.Scenario{}, err
	}
	return CompileScenario(v)
}

// LoadValue builds the CUE value at path without compiling it.
func LoadValue(path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("load scenario: %w", err)
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("load scenario: %w", err)
		}
		v := ctx.CompileBytes(src, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.cue"))
	if err != nil {
		return cue.Value{}, fmt.Errorf("load scenario: %w", err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("load scenario: no .cue files in %s", path)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("load scenario: no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}
