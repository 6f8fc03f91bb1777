package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultInvalidationSubject тема уведомлений об изменённых чанках
const DefaultInvalidationSubject = "voxel.cache.chunks"

// NATSInvalidator реализует Invalidator используя NATS Pub/Sub.
// Собственные сообщения узла отбрасываются по NodeID.
type NATSInvalidator struct {
	conn    *nats.Conn
	subject string
	nodeID  string
	log     *logging.Logger

	mu           sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	publishedCount atomic.Int64
	receivedCount  atomic.Int64
	errorsCount    atomic.Int64
}

// InvalidationMessage представляет сообщение об инвалидации чанка.
type InvalidationMessage struct {
	Chunk     vec.Vec3  `json:"chunk"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NewNATSInvalidator подключается к NATS. Пустая тема заменяется на
// DefaultInvalidationSubject, пустой nodeID на случайный UUID.
func NewNATSInvalidator(url, subject, nodeID string) (*NATSInvalidator, error) {
	if subject == "" {
		subject = DefaultInvalidationSubject
	}
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	log := logging.GetStorageLogger()

	conn, err := nats.Connect(url,
		nats.Name("voxel-cache-"+nodeID),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS отключён: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS переподключён к %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS: %w", err)
	}

	log.Info("Инвалидатор кеша: %s (тема %s, узел %s)", url, subject, nodeID)
	return &NATSInvalidator{
		conn:    conn,
		subject: subject,
		nodeID:  nodeID,
		log:     log,
		stopCh:  make(chan struct{}),
	}, nil
}

// PublishInvalidation отправляет уведомление об изменении чанка.
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, coord vec.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(InvalidationMessage{
		Chunk:     coord,
		Timestamp: time.Now().UTC(),
		NodeID:    n.nodeID,
	})
	if err != nil {
		n.errorsCount.Add(1)
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.errorsCount.Add(1)
		return fmt.Errorf("публикация инвалидации: %w", err)
	}
	n.publishedCount.Add(1)
	return nil
}

// SubscribeInvalidations подписывается на уведомления других узлов.
// Подписка снимается при отмене ctx или Close.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription != nil {
		return fmt.Errorf("подписка на инвалидации уже есть")
	}

	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("подписка на инвалидации: %w", err)
	}
	n.subscription = sub
	n.handler = handler

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()
	return nil
}

// Close закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	n.closeOnce.Do(func() {
		close(n.stopCh)
		n.wg.Wait()
		n.conn.Close()
	})
	return nil
}

// Stats возвращает счётчики публикаций, приёма и ошибок
func (n *NATSInvalidator) Stats() (published, received, errors int64) {
	return n.publishedCount.Load(), n.receivedCount.Load(), n.errorsCount.Load()
}

func (n *NATSInvalidator) handleMessage(msg *nats.Msg) {
	n.receivedCount.Add(1)

	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		n.errorsCount.Add(1)
		n.log.Error("Неверное сообщение инвалидации: %v", err)
		return
	}
	if m.NodeID == n.nodeID {
		return
	}

	n.mu.Lock()
	handler := n.handler
	n.mu.Unlock()
	if handler == nil {
		return
	}
	if err := handler(m.Chunk); err != nil {
		n.errorsCount.Add(1)
		n.log.Error("Инвалидация чанка %v: %v", m.Chunk, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		n.log.Error("Ошибка отписки от инвалидаций: %v", err)
	}
	n.subscription = nil
}
