package cache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invalidationMsg(t *testing.T, node string, coord vec.Vec3) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(InvalidationMessage{Chunk: coord, Timestamp: time.Now(), NodeID: node})
	require.NoError(t, err)
	return &nats.Msg{Subject: DefaultInvalidationSubject, Data: data}
}

func TestNATSInvalidatorHandleMessage(t *testing.T) {
	n := &NATSInvalidator{nodeID: "node-a", log: logging.GetStorageLogger()}

	var got []vec.Vec3
	n.handler = func(coord vec.Vec3) error {
		got = append(got, coord)
		if coord.X < 0 {
			return errors.New("чанк занят")
		}
		return nil
	}

	n.handleMessage(invalidationMsg(t, "node-b", vec.Vec3{X: 1}))
	n.handleMessage(invalidationMsg(t, "node-a", vec.Vec3{X: 2}))
	n.handleMessage(invalidationMsg(t, "node-b", vec.Vec3{X: -1}))
	n.handleMessage(&nats.Msg{Data: []byte("{")})

	assert.Equal(t, []vec.Vec3{{X: 1}, {X: -1}}, got, "Свои сообщения пропускаются")
	published, received, errs := n.Stats()
	assert.Zero(t, published)
	assert.Equal(t, int64(4), received)
	assert.Equal(t, int64(2), errs, "Ошибка обработчика и неверный JSON")
}
