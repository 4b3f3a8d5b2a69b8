package websocket

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"triarb/internal/bot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON буферов: убирает аллокации при каждой публикации
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями и раздаёт им
// события торгового ядра.
//
// Hub реализует bot.EventSink: Publish не блокируется никогда - при
// переполнении broadcast-буфера событие сбрасывается и считается в
// метрике. Сканер не должен ждать медленный UI.
//
// Использование:
//  1. hub := NewHub(logger)
//  2. go hub.Run()
//  3. передать hub сканеру как EventSink
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал: сериализованные сообщения для всех клиентов
	broadcast chan []byte

	// Регистрация / отмена регистрации клиентов
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger

	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает главный цикл Hub.
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			// Копируем список клиентов под коротким RLock,
			// отправляем без блокировки
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				h.logger.Warn("removed slow websocket clients", zap.Int("count", len(toRemove)))
			}
		}
	}
}

// Publish реализует bot.EventSink: событие сериализуется и уходит
// в broadcast без блокировки. Переполненный буфер = сброс события.
func (h *Hub) Publish(e bot.Event) {
	msg := MessageFromEvent(e)
	if msg == nil {
		return
	}

	data, err := h.encode(msg)
	if err != nil {
		h.logger.Error("encode event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		bot.RecordEventDropped()
	}
}

// encode сериализует сообщение через пул буферов
func (h *Hub) encode(message interface{}) ([]byte, error) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		return nil, err
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
