package block

import (
	"errors"
	"fmt"
	"sort"
)

// BlockID представляет идентификатор типа блока
type BlockID uint8

// Константы ID блоков
const (
	AirBlockID      BlockID = iota // 0 - пустота
	LuckyBlockID                   // 1 - собираемый блок
	GrassBlockID                   // 2
	DirtBlockID                    // 3
	StoneBlockID                   // 4
	OakPlankBlockID                // 5
	PumpkinBlockID                 // 6
)

var (
	// ErrUnknownBlockType возникает, когда в чанке оказался тип без записи в регистре.
	// Это нарушение инварианта, а не ошибка ввода.
	ErrUnknownBlockType = errors.New("неизвестный тип блока")
	// ErrAirMaterial возвращается при попытке зарегистрировать материал для воздуха
	ErrAirMaterial = errors.New("воздух не имеет материала")

	// ErrDuplicateName возвращается, если имя уже занято другим типом блока
	ErrDuplicateName = errors.New("имя блока уже занято")
)

// Definition - декларативное описание блока до перевода в UV
type Definition struct {
	Name      string
	Faces     FaceRects
	Color     RGBA
	TexWeight float32
}

// Registry хранит материалы всех типов блоков.
// После построения на старте процесса используется только для чтения.
type Registry struct {
	atlas     Atlas
	materials map[BlockID]Material
	names     map[string]BlockID
}

// NewRegistry создаёт пустой регистр для атласа указанного размера
func NewRegistry(atlas Atlas) *Registry {
	return &Registry{
		atlas:     atlas,
		materials: make(map[BlockID]Material),
		names:     make(map[string]BlockID),
	}
}

// BuildRegistry строит регистр из декларативной таблицы
func BuildRegistry(atlas Atlas, defs map[BlockID]Definition) (*Registry, error) {
	r := NewRegistry(atlas)
	for id, def := range defs {
		if err := r.Define(id, def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Atlas возвращает атлас, относительно которого посчитаны UV
func (r *Registry) Atlas() Atlas {
	return r.atlas
}

// Define переводит описание в материал и регистрирует его
func (r *Registry) Define(id BlockID, def Definition) error {
	m := Material{
		Name:      def.Name,
		Color:     def.Color,
		TexWeight: def.TexWeight,
	}
	for f := Face(0); f < FaceCount; f++ {
		m.Faces[f] = r.atlas.UV(def.Faces[f])
	}
	return r.Register(id, m)
}

// Register добавляет материал блока в регистр
func (r *Registry) Register(id BlockID, m Material) error {
	if id == AirBlockID {
		return ErrAirMaterial
	}
	if m.TexWeight < 0 || m.TexWeight > 1 {
		return fmt.Errorf("вес текстуры %.2f для блока %d вне диапазона [0,1]", m.TexWeight, id)
	}
	if m.Name == "air" {
		return fmt.Errorf("%w: %q", ErrDuplicateName, m.Name)
	}
	if other, ok := r.names[m.Name]; ok && m.Name != "" && other != id {
		return fmt.Errorf("%w: %q принадлежит блоку %d", ErrDuplicateName, m.Name, other)
	}
	if old, ok := r.materials[id]; ok && old.Name != m.Name {
		delete(r.names, old.Name)
	}
	r.materials[id] = m
	if m.Name != "" {
		r.names[m.Name] = id
	}
	return nil
}

// Material возвращает материал для указанного ID
func (r *Registry) Material(id BlockID) (Material, bool) {
	m, ok := r.materials[id]
	return m, ok
}

// MustMaterial возвращает материал или паникует.
// Тип без записи может появиться только из-за ошибки в коде, пишущем блоки.
func (r *Registry) MustMaterial(id BlockID) Material {
	m, ok := r.materials[id]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnknownBlockType, id))
	}
	return m
}

// IsValid проверяет, может ли ID храниться в чанке (воздух допустим всегда)
func (r *Registry) IsValid(id BlockID) bool {
	if id == AirBlockID {
		return true
	}
	_, ok := r.materials[id]
	return ok
}

// Lookup ищет ID по имени блока
func (r *Registry) Lookup(name string) (BlockID, bool) {
	if name == "air" {
		return AirBlockID, true
	}
	id, ok := r.names[name]
	return id, ok
}

// Name возвращает имя блока для интерфейса
func (r *Registry) Name(id BlockID) string {
	if id == AirBlockID {
		return "air"
	}
	if m, ok := r.materials[id]; ok {
		return m.Name
	}
	return "unknown"
}

// IDs возвращает зарегистрированные ID по возрастанию
func (r *Registry) IDs() []BlockID {
	ids := make([]BlockID, 0, len(r.materials))
	for id := range r.materials {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var defaultRegistry = mustBuildDefault()

func mustBuildDefault() *Registry {
	r, err := BuildRegistry(Atlas{Size: DefaultAtlasSize}, DefaultDefinitions)
	if err != nil {
		panic(err)
	}
	return r
}

// Default возвращает регистр, построенный на старте процесса
func Default() *Registry {
	return defaultRegistry
}
