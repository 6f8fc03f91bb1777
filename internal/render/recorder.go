package render

import (
	"errors"
	"strings"
	"sync"
)

// DrawCall - записанный вызов отрисовки
type DrawCall struct {
	Buffer BufferID
	First  int
	Count  int
}

// Recorder - безголовый бэкенд, который запоминает все вызовы.
// Используется в тестах и в CLI без окна.
type Recorder struct {
	mu sync.Mutex

	nextID   BufferID
	bound    BufferID
	buffers  map[BufferID][]float32
	attribs  map[string]Attribute
	uniforms map[string]any
	draws    []DrawCall
	uploads  int
	program  bool
}

// NewRecorder создает пустой Recorder
func NewRecorder() *Recorder {
	return &Recorder{
		buffers:  make(map[BufferID][]float32),
		attribs:  make(map[string]Attribute),
		uniforms: make(map[string]any),
	}
}

// CreateBuffer выделяет новый дескриптор
func (r *Recorder) CreateBuffer() BufferID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.buffers[r.nextID] = nil
	return r.nextID
}

// DeleteBuffer освобождает буфер
func (r *Recorder) DeleteBuffer(id BufferID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.buffers, id)
	if r.bound == id {
		r.bound = NoBuffer
	}
}

// BindBuffer делает буфер текущим
func (r *Recorder) BindBuffer(id BufferID) {
	r.mu.Lock()
	r.bound = id
	r.mu.Unlock()
}

// BufferData копирует данные в привязанный буфер
func (r *Recorder) BufferData(data []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buffers[r.bound]; !ok {
		return
	}
	r.buffers[r.bound] = append([]float32(nil), data...)
	r.uploads++
}

// VertexAttribPointer запоминает раскладку атрибута
func (r *Recorder) VertexAttribPointer(attr Attribute) {
	r.mu.Lock()
	r.attribs[attr.Name] = attr
	r.mu.Unlock()
}

// DrawArrays записывает вызов отрисовки
func (r *Recorder) DrawArrays(first, count int) {
	r.mu.Lock()
	r.draws = append(r.draws, DrawCall{Buffer: r.bound, First: first, Count: count})
	r.mu.Unlock()
}

// SetUniform запоминает значение uniform-переменной
func (r *Recorder) SetUniform(name string, value any) {
	r.mu.Lock()
	r.uniforms[name] = value
	r.mu.Unlock()
}

// UseProgram проверяет, что исходники шейдеров не пустые
func (r *Recorder) UseProgram(vertexSrc, fragmentSrc string) error {
	if strings.TrimSpace(vertexSrc) == "" || strings.TrimSpace(fragmentSrc) == "" {
		return errors.New("пустой исходник шейдера")
	}
	r.mu.Lock()
	r.program = true
	r.mu.Unlock()
	return nil
}

// Draws возвращает копию записанных вызовов отрисовки
func (r *Recorder) Draws() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DrawCall(nil), r.draws...)
}

// ResetDraws очищает список вызовов (начало нового кадра)
func (r *Recorder) ResetDraws() {
	r.mu.Lock()
	r.draws = r.draws[:0]
	r.mu.Unlock()
}

// Uploads возвращает количество выгрузок буферов
func (r *Recorder) Uploads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploads
}

// Data возвращает копию содержимого буфера
func (r *Recorder) Data(id BufferID) ([]float32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.buffers[id]
	if !ok {
		return nil, false
	}
	return append([]float32(nil), data...), true
}

// LiveBuffers возвращает количество неосвобождённых буферов
func (r *Recorder) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// Attribute возвращает записанную раскладку атрибута
func (r *Recorder) Attribute(name string) (Attribute, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attribs[name]
	return a, ok
}

// Uniform возвращает значение uniform-переменной
func (r *Recorder) Uniform(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.uniforms[name]
	return v, ok
}

// ProgramReady сообщает, была ли вызвана UseProgram
func (r *Recorder) ProgramReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.program
}
