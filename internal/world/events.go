package world

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/vec"
)

// Типы событий мира, публикуемых во внешнюю шину.
// Рендер-коллаборатор подписывается на ChunkDirty, чтобы
// инвалидировать кэши чанков.
const (
	EventChunkGenerated = "ChunkGenerated"
	EventChunkDirty     = "ChunkDirty"
	EventVoxelsRemoved  = "VoxelsRemoved"
)

// ChunkEventPayload — полезная нагрузка событий ChunkGenerated/ChunkDirty
type ChunkEventPayload struct {
	Coords vec.Vec3 `json:"coords"`
}

// VoxelsRemovedPayload — полезная нагрузка события VoxelsRemoved (взрыв)
type VoxelsRemovedPayload struct {
	Voxels []vec.Vec3 `json:"voxels"`
}

// publishWorldEvent заворачивает полезную нагрузку в конверт шины.
// Ошибка публикации не фатальна для мира: событие — сигнал, не состояние.
func publishWorldEvent(eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = eventbus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "voxel-world",
		EventType: eventType,
		Version:   1,
		Priority:  3,
		Payload:   data,
	})
}
