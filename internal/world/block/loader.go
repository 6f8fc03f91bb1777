package block

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BlockFile - формат YAML-файла с дополнительными или переопределёнными блоками
type BlockFile struct {
	Blocks []BlockSpec `yaml:"blocks"`
}

// BlockSpec описывает один блок в YAML
type BlockSpec struct {
	ID        uint8             `yaml:"id"`
	Name      string            `yaml:"name"`
	Tile      [2]int            `yaml:"tile"`
	TileSize  int               `yaml:"tile_size"`
	Faces     map[string][2]int `yaml:"faces"`
	Color     [4]float32        `yaml:"color"`
	TexWeight *float32          `yaml:"tex_weight"`
}

// Definition переводит YAML-описание в декларативное описание блока
func (s BlockSpec) Definition() (Definition, error) {
	size := s.TileSize
	if size == 0 {
		size = DefaultTileSize
	}
	rect := func(p [2]int) AtlasRect {
		return AtlasRect{X: p[0], Y: p[1], W: size, H: size}
	}

	def := Definition{
		Name:      s.Name,
		Faces:     Uniform(rect(s.Tile)),
		Color:     RGBA(s.Color),
		TexWeight: 1,
	}
	if s.TexWeight != nil {
		def.TexWeight = *s.TexWeight
	}
	for name, p := range s.Faces {
		face, ok := ParseFace(name)
		if !ok {
			return Definition{}, fmt.Errorf("блок %q: неизвестная грань %q", s.Name, name)
		}
		def.Faces = def.Faces.With(face, rect(p))
	}
	return def, nil
}

// LoadYAML читает файл блоков и регистрирует их в r.
// Ошибка отсутствия файла возвращается как есть, чтобы вызывающий мог проверить os.ErrNotExist.
func LoadYAML(r *Registry, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return ParseYAML(r, data)
}

// ParseYAML регистрирует блоки из YAML-документа и возвращает их количество
func ParseYAML(r *Registry, data []byte) (int, error) {
	var file BlockFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("разбор YAML блоков: %w", err)
	}

	for i, spec := range file.Blocks {
		def, err := spec.Definition()
		if err != nil {
			return i, err
		}
		if err := r.Define(BlockID(spec.ID), def); err != nil {
			return i, fmt.Errorf("блок %q: %w", spec.Name, err)
		}
	}
	return len(file.Blocks), nil
}
