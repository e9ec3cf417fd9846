package gpu

import (
	"embed"
	"fmt"
	"path/filepath"

	eb "github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"
)

//go:embed shaders/*.kage
var shaderFS embed.FS

const (
	simShaderName     = "sim.kage"
	displayShaderName = "display.kage"
)

// Shaders is the compiled pair of passes.
type Shaders struct {
	Sim     *eb.Shader
	Display *eb.Shader
}

func compile(name string, src []byte) (*eb.Shader, error) {
	shader, err := eb.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	return shader, nil
}

func compileBoth(read func(name string) ([]byte, error)) (*Shaders, error) {
	simSrc, err := read(simShaderName)
	if err != nil {
		return nil, err
	}
	displaySrc, err := read(displayShaderName)
	if err != nil {
		return nil, err
	}

	sim, err := compile(simShaderName, simSrc)
	if err != nil {
		return nil, err
	}
	display, err := compile(displayShaderName, displaySrc)
	if err != nil {
		sim.Deallocate()
		return nil, err
	}

	return &Shaders{Sim: sim, Display: display}, nil
}

// LoadShaders compiles the shaders built into the binary.
func LoadShaders() (*Shaders, error) {
	return compileBoth(func(name string) ([]byte, error) {
		return shaderFS.ReadFile("shaders/" + name)
	})
}

// ReloadShaders compiles the shader sources found in dir.
// On error the old shaders should be kept.
func ReloadShaders(fs afero.Fs, dir string) (*Shaders, error) {
	return compileBoth(func(name string) ([]byte, error) {
		return afero.ReadFile(fs, filepath.Join(dir, name))
	})
}

func (s *Shaders) Deallocate() {
	s.Sim.Deallocate()
	s.Display.Deallocate()
}
