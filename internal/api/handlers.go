package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-explorer/internal/storage"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/gin-gonic/gin"
)

// BlockInfo описывает блок мира
type BlockInfo struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Chunk string `json:"chunk"`
	ID    uint8  `json:"id"`
	Name  string `json:"name"`
}

// BlockType описывает тип блока из реестра
type BlockType struct {
	ID        uint8      `json:"id"`
	Name      string     `json:"name"`
	Color     [4]float32 `json:"color"`
	TexWeight float32    `json:"tex_weight"`
}

// ChunkInfo описывает состояние чанка.
// Vertices соответствует последней перестройке; Dirty означает, что она устарела.
type ChunkInfo struct {
	Coord    string `json:"coord"`
	Origin   string `json:"origin"`
	Filled   int    `json:"filled"`
	Vertices int    `json:"vertices"`
	Rebuilds int    `json:"rebuilds"`
	Dirty    bool   `json:"dirty"`
	Changed  bool   `json:"changed"`
}

// SavedChunkInfo описывает сохранённую версию чанка
type SavedChunkInfo struct {
	Coord   string         `json:"coord"`
	Size    int            `json:"size"`
	SavedAt time.Time      `json:"saved_at"`
	Filled  int            `json:"filled"`
	Blocks  map[string]int `json:"blocks"`
}

// SetBlockRequest тело PUT /api/blocks/:x/:y/:z
type SetBlockRequest struct {
	Block string `json:"block" binding:"required"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: msg})
}

// parsePosition читает мировые координаты из пути
func parsePosition(c *gin.Context) (vec.Vec3, error) {
	var pos vec.Vec3
	for _, p := range []struct {
		name string
		dst  *int
	}{{"x", &pos.X}, {"y", &pos.Y}, {"z", &pos.Z}} {
		v, err := strconv.Atoi(c.Param(p.name))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("неверная координата %s: %q", p.name, c.Param(p.name))
		}
		*p.dst = v
	}
	return pos, nil
}

func blockInfo(w *world.World, pos vec.Vec3) BlockInfo {
	id := w.GetBlockAt(pos)
	return BlockInfo{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		Chunk: world.ChunkCoordOf(pos, w.ChunkSize()).String(),
		ID:    uint8(id),
		Name:  w.Registry().Name(id),
	}
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"time":        time.Now().Unix(),
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"memory":      rs.metrics.GetDetailedMemoryStats(),
	})
}

// handleStatus возвращает прогресс сбора блоков удачи
func (rs *RestServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние получено",
		Data:    rs.state.Status(),
	})
}

// handleBlockTypes возвращает типы блоков реестра
func (rs *RestServer) handleBlockTypes(c *gin.Context) {
	var types []BlockType
	rs.state.WithWorld(func(w *world.World) {
		reg := w.Registry()
		for _, id := range reg.IDs() {
			m := reg.MustMaterial(id)
			types = append(types, BlockType{ID: uint8(id), Name: m.Name, Color: m.Color, TexWeight: m.TexWeight})
		}
	})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Типы блоков", Data: types})
}

// handleGetBlock возвращает блок по мировым координатам
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := parsePosition(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		info   BlockInfo
		inside bool
	)
	rs.state.WithWorld(func(w *world.World) {
		inside = w.Contains(pos)
		if inside {
			info = blockInfo(w, pos)
		}
	})
	if !inside {
		respondError(c, http.StatusNotFound, fmt.Sprintf("позиция %v вне мира", pos))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок получен", Data: info})
}

// handleSetBlock ставит блок указанного типа
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	pos, err := parsePosition(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	var (
		info   BlockInfo
		known  bool
		inside bool
	)
	rs.state.WithWorld(func(w *world.World) {
		var id block.BlockID
		id, known = w.Registry().Lookup(req.Block)
		if !known {
			return
		}
		inside = w.SetBlockAt(pos, id)
		info = blockInfo(w, pos)
	})
	switch {
	case !known:
		respondError(c, http.StatusBadRequest, fmt.Sprintf("неизвестный тип блока %q", req.Block))
	case !inside:
		respondError(c, http.StatusNotFound, fmt.Sprintf("позиция %v вне мира", pos))
	default:
		rs.log.Info("🧱 %s поставил %s в %v", c.GetString("subject"), req.Block, pos)
		c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок установлен", Data: info})
	}
}

// handleRemoveBlock убирает блок
func (rs *RestServer) handleRemoveBlock(c *gin.Context) {
	pos, err := parsePosition(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		removed block.BlockID
		name    string
		inside  bool
	)
	rs.state.WithWorld(func(w *world.World) {
		inside = w.Contains(pos)
		removed = w.RemoveBlock(pos)
		name = w.Registry().Name(removed)
	})
	if !inside {
		respondError(c, http.StatusNotFound, fmt.Sprintf("позиция %v вне мира", pos))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок удалён",
		Data:    gin.H{"removed": name, "removed_id": uint8(removed)},
	})
}

// handleChunks возвращает состояние всех чанков
func (rs *RestServer) handleChunks(c *gin.Context) {
	var chunks []ChunkInfo
	rs.state.WithWorld(func(w *world.World) {
		for _, ch := range w.Chunks() {
			chunks = append(chunks, ChunkInfo{
				Coord:    ch.Coord.String(),
				Origin:   ch.Origin.String(),
				Filled:   ch.Filled(),
				Vertices: ch.VertexCount(),
				Rebuilds: ch.RebuildCount(),
				Dirty:    ch.Dirty(),
				Changed:  ch.HasChanges(),
			})
		}
	})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанки", Data: chunks})
}

// handleSavedChunk возвращает сохранённую версию чанка по координатам чанка
func (rs *RestServer) handleSavedChunk(c *gin.Context) {
	if rs.repo == nil {
		respondError(c, http.StatusServiceUnavailable, "Хранилище не настроено")
		return
	}
	coord, err := parsePosition(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, found, err := rs.repo.Load(c.Request.Context(), coord)
	if err != nil {
		rs.log.Error("Ошибка чтения чанка %v: %v", coord, err)
		respondError(c, http.StatusInternalServerError, "Ошибка чтения чанка")
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, fmt.Sprintf("чанк %v не сохранялся", coord))
		return
	}

	info := SavedChunkInfo{
		Coord:   coord.String(),
		Size:    rec.Size,
		SavedAt: rec.SavedAt,
		Blocks:  make(map[string]int),
	}
	rs.state.WithWorld(func(w *world.World) {
		reg := w.Registry()
		for _, id := range rec.Cells {
			if id == block.AirBlockID {
				continue
			}
			info.Filled++
			info.Blocks[reg.Name(id)]++
		}
	})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сохранённый чанк", Data: info})
}

// handleSave сохраняет изменённые чанки; ?force=true сохраняет все
func (rs *RestServer) handleSave(c *gin.Context) {
	if rs.repo == nil {
		respondError(c, http.StatusServiceUnavailable, "Хранилище не настроено")
		return
	}
	force := c.Query("force") == "true"

	var (
		saved int
		err   error
	)
	rs.state.WithWorld(func(w *world.World) {
		saved, err = storage.SaveWorld(c.Request.Context(), rs.repo, w, force)
	})
	if err != nil {
		rs.log.Error("Ошибка сохранения мира: %v", err)
		respondError(c, http.StatusInternalServerError, "Ошибка сохранения мира")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Сохранено чанков: %d", saved),
		Data:    gin.H{"saved": saved},
	})
}
