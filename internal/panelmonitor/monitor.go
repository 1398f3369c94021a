package panelmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"dinehub/pkg/logger"
	"dinehub/pkg/models"

	"github.com/gorilla/websocket"
)

const (
	RoleWaiter  = "waiter"
	RoleKitchen = "kitchen"

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

type frame struct {
	Type  string               `json:"type"`
	Order models.OrderSnapshot `json:"order"`
}

// Monitor follows one panel stream and prints every event it carries.
// The connection is re-dialled with exponential backoff until the
// context is cancelled.
type Monitor struct {
	addr     string
	role     string
	clientID string
	logger   *logger.Logger
	display  *Display

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewMonitor(addr, role, clientID string, log *logger.Logger) (*Monitor, error) {
	if role != RoleWaiter && role != RoleKitchen {
		return nil, fmt.Errorf("invalid role %q: must be %q or %q", role, RoleWaiter, RoleKitchen)
	}
	if clientID == "" {
		return nil, fmt.Errorf("client-id is required")
	}
	return &Monitor{
		addr:     addr,
		role:     role,
		clientID: clientID,
		logger:   log,
		display:  NewDisplay(),
	}, nil
}

func (m *Monitor) endpoint() string {
	u := url.URL{Scheme: "ws", Host: m.addr, Path: "/ws/" + m.role + "/" + m.clientID + "/"}
	return u.String()
}

func (m *Monitor) Start(ctx context.Context) error {
	backoff := initialBackoff
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.endpoint(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("connect", "dial_failed",
				fmt.Sprintf("Failed to reach %s, retrying in %s", m.endpoint(), backoff), err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff

		m.setConn(conn)
		m.logger.Info("connect", "panel_connected", "Watching "+m.endpoint())

		err = m.readLoop(conn)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		m.logger.Warn("connect", "panel_disconnected", "Connection lost, reconnecting", err)
	}
}

func (m *Monitor) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := m.processMessage(raw); err != nil {
			m.logger.Error("message_processing", "process_failed", "Failed to process event", err)
		}
	}
}

func (m *Monitor) processMessage(raw []byte) error {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	m.display.Show(f.Type, f.Order)
	return nil
}

func (m *Monitor) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

// Stop closes the live connection so a blocked read returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
	}
}
