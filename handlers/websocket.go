package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"robotsim-backend/logger"
	"robotsim-backend/models"
	"robotsim-backend/services"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// wsConn is the part of a websocket connection the hub writes to.
type wsConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client - one web viewer subscribed to a factory
type Client struct {
	Conn      wsConn
	FactoryID string
}

type directMessage struct {
	conn wsConn
	msg  models.WebSocketMessage
}

// ClientManager owns every registered connection. Only its Start loop writes
// to a connection once it is registered.
type ClientManager struct {
	clients    map[wsConn]*Client
	broadcast  chan models.WebSocketMessage
	direct     chan directMessage
	register   chan *Client
	unregister chan wsConn
	mutex      sync.RWMutex

	done     chan struct{} // closed once Start has returned
	doneOnce sync.Once
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[wsConn]*Client),
		broadcast:  make(chan models.WebSocketMessage, 100),
		direct:     make(chan directMessage, 16),
		register:   make(chan *Client, 16),
		unregister: make(chan wsConn, 16),
		done:       make(chan struct{}),
	}
}

// 클라이언트 관리 시작
func (manager *ClientManager) Start(ctx context.Context) {
	defer manager.doneOnce.Do(func() { close(manager.done) })

	for {
		select {
		case <-ctx.Done():
			manager.closeAll()
			return

		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client.Conn] = client
			manager.mutex.Unlock()
			logger.Log.WithField("factory_id", client.FactoryID).Info("클라이언트 등록")

		case conn := <-manager.unregister:
			manager.remove(conn)

		case message := <-manager.broadcast:
			manager.handleBroadcast(message)

		case d := <-manager.direct:
			if err := d.conn.WriteJSON(d.msg); err != nil {
				manager.remove(d.conn)
			}
		}
	}
}

func (manager *ClientManager) remove(conn wsConn) {
	manager.mutex.Lock()
	client, ok := manager.clients[conn]
	delete(manager.clients, conn)
	manager.mutex.Unlock()

	if ok {
		_ = conn.Close()
		logger.Log.WithField("factory_id", client.FactoryID).Info("클라이언트 해제")
	}
}

func (manager *ClientManager) closeAll() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	for conn := range manager.clients {
		_ = conn.Close()
	}
	manager.clients = make(map[wsConn]*Client)
}

func (manager *ClientManager) handleBroadcast(message models.WebSocketMessage) {
	manager.mutex.RLock()
	var failed []wsConn
	for conn, client := range manager.clients {
		// 공장 단위 메시지는 해당 공장 뷰어에게만
		if message.FactoryID != "" && client.FactoryID != message.FactoryID {
			continue
		}
		if err := conn.WriteJSON(message); err != nil {
			logger.Log.WithError(err).WithField("factory_id", client.FactoryID).Warn("전송 실패")
			failed = append(failed, conn)
		}
	}
	manager.mutex.RUnlock()

	for _, conn := range failed {
		manager.remove(conn)
	}
}

// BroadcastMessage queues msg for every viewer of msg.FactoryID (all viewers
// when empty). Messages are dropped while the queue is full.
func (manager *ClientManager) BroadcastMessage(msg models.WebSocketMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case manager.broadcast <- msg:
	default:
		logger.Log.WithField("type", msg.Type).Debug("broadcast queue full, message dropped")
	}
}

func (manager *ClientManager) send(conn wsConn, msg models.WebSocketMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case manager.direct <- directMessage{conn: conn, msg: msg}:
	case <-manager.done:
	}
}

// Register hands client to the hub. Once the hub has stopped the connection is
// closed instead.
func (manager *ClientManager) Register(client *Client) {
	select {
	case <-manager.done:
		_ = client.Conn.Close()
		return
	default:
	}

	select {
	case manager.register <- client:
	case <-manager.done:
		_ = client.Conn.Close()
	}
}

// Unregister never blocks after the hub has stopped; Start closed every
// registered connection on its way out.
func (manager *ClientManager) Unregister(conn wsConn) {
	select {
	case manager.unregister <- conn:
	case <-manager.done:
	}
}

func (manager *ClientManager) GetClientCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

// inboundMessage keeps Data raw until the type is known.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleWebClientWebSocket streams snapshots of one factory to a viewer and
// accepts start / stop commands from it.
func (a *API) HandleWebClientWebSocket(c *websocket.Conn) {
	factoryID := c.Params("id")
	log := logger.Log.WithFields(logrus.Fields{
		"factory_id": factoryID,
		"remote":     c.RemoteAddr().String(),
	})

	// 연결 확인 메시지 전송 (hub 등록 전이라 직접 기록)
	welcomeMsg := models.WebSocketMessage{
		Type:      models.MessageTypeSystemInfo,
		FactoryID: factoryID,
		Data: map[string]interface{}{
			"message":      "웹 클라이언트 연결됨",
			"connected_at": time.Now().Format(time.RFC3339),
			"running":      a.isRunning(factoryID),
		},
		Timestamp: time.Now().UnixMilli(),
	}
	if err := c.WriteJSON(welcomeMsg); err != nil {
		log.WithError(err).Warn("welcome 전송 실패")
		return
	}
	if snap, err := a.Simulations.Snapshot(factoryID); err == nil {
		_ = c.WriteJSON(snapshotMessage(snap))
	}

	a.Hub.Register(&Client{Conn: c, FactoryID: factoryID})
	defer a.Hub.Unregister(c)

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.WithError(err).Debug("웹 메시지 읽기 종료")
			return
		}

		switch msg.Type {
		case models.MessageTypeCommand:
			var cmd models.SimulationCommand
			if err := json.Unmarshal(msg.Data, &cmd); err != nil {
				a.Hub.send(c, systemInfo(factoryID, "잘못된 명령 형식입니다"))
				continue
			}
			if reply := a.runCommand(factoryID, cmd); reply != "" {
				a.Hub.send(c, systemInfo(factoryID, reply))
			}
		default:
			log.Debugf("알 수 없는 메시지 타입: %s", msg.Type)
		}
	}
}

// runCommand applies a viewer command and returns a message for that viewer
// when it failed.
func (a *API) runCommand(factoryID string, cmd models.SimulationCommand) string {
	var err error
	switch cmd.Action {
	case "start":
		_, err = a.Simulations.Start(context.Background(), factoryID)
	case "stop":
		_, err = a.Simulations.Stop(factoryID)
	default:
		return "알 수 없는 명령: " + cmd.Action
	}
	if err == nil {
		return ""
	}
	if !errors.Is(err, services.ErrSimulationRunning) && !errors.Is(err, services.ErrSimulationNotRunning) {
		logger.Log.WithError(err).WithField("factory_id", factoryID).Warn("command failed")
	}
	return err.Error()
}

func (a *API) isRunning(factoryID string) bool {
	_, ok := a.Simulations.Get(factoryID)
	return ok
}

func systemInfo(factoryID, message string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      models.MessageTypeSystemInfo,
		FactoryID: factoryID,
		Data:      map[string]interface{}{"message": message},
	}
}

func snapshotMessage(snap *models.FacilitySnapshot) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      models.MessageTypeSnapshot,
		FactoryID: snap.ID,
		Data:      snap,
		Timestamp: time.Now().UnixMilli(),
	}
}
