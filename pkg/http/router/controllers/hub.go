package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/drivesim/pkg/concurrent"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type Codec uint8

const (
	CodecJSON Codec = iota
	CodecMsgpack
)

func ParseCodec(s string) (Codec, bool) {
	switch s {
	case "", "json":
		return CodecJSON, true
	case "msgpack":
		return CodecMsgpack, true
	}
	return CodecJSON, false
}

func (c Codec) opCode() ws.OpCode {
	if c == CodecMsgpack {
		return ws.OpBinary
	}
	return ws.OpText
}

func (c Codec) marshal(v any) ([]byte, error) {
	if c == CodecMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id    uint
	codec atomic.Uint32
	hub   *Hub

	closeOnce sync.Once
	onClose   func()
}

// close runs the release hook and closes the connection, once.
func (u *User) close() {
	u.closeOnce.Do(func() {
		if u.onClose != nil {
			u.onClose()
		}
		u.conn.Close()
	})
}

func (u *User) Codec() Codec {
	return Codec(u.codec.Load())
}

// Receive reads one client frame. Control frames are answered; a text frame may switch
// the user's codec with {"codec": "json"|"msgpack"}.
func (u *User) Receive() error {
	req, err := u.readRequest()
	if err != nil {
		u.close()
		return err
	}
	if req == nil {
		return nil
	}

	if err := validateStruct(req); err != nil {
		return u.writeError(err)
	}

	codec, _ := ParseCodec(req.Codec)
	u.codec.Store(uint32(codec))
	return nil
}

func (u *User) readRequest() (*streamRequest, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	req := &streamRequest{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (u *User) writeError(err error) error {
	var resp errorResponse
	resp.Error.Code = "Bad Request"
	resp.Error.Message = err.Error()
	payload, merr := json.Marshal(resp)
	if merr != nil {
		return merr
	}
	return u.writeRaw(ws.OpText, payload)
}

func (u *User) writeRaw(op ws.OpCode, payload []byte) error {
	u.io.Lock()
	defer u.io.Unlock()
	return wsutil.WriteServerMessage(u.conn, op, payload)
}

// Hub fans the journey state out to every connected websocket user.
type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	journeyService JourneyService
	pool           *concurrent.Pool
	log            *zap.Logger
}

func NewHub(pool *concurrent.Pool, journeyService JourneyService, log *zap.Logger) *Hub {
	return &Hub{
		pool:           pool,
		ns:             make(map[uint]*User),
		us:             make([]*User, 0),
		journeyService: journeyService,
		log:            log,
	}
}

// Register subscribes conn to the stream. onClose, when set, runs once as the user is
// dropped, before the connection is closed.
func (h *Hub) Register(conn net.Conn, codec Codec, onClose func()) *User {
	user := &User{
		hub:     h,
		conn:    conn,
		onClose: onClose,
	}
	user.codec.Store(uint32(codec))

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)
	h.seq++
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ns[user.id]; !ok {
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs
}

func (h *Hub) RemoveAllUser() {
	h.mu.Lock()
	users := h.us
	h.us = make([]*User, 0)
	h.ns = make(map[uint]*User)
	h.mu.Unlock()

	for _, user := range users {
		user.close()
	}
}

// Drop unsubscribes user and releases its connection.
func (h *Hub) Drop(user *User) {
	h.Remove(user)
	user.close()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.us)
}

// Broadcast encodes the current state once per codec in use and schedules one write per
// user. A write that cannot be scheduled within timeout is dropped; the next frame
// supersedes it.
func (h *Hub) Broadcast(timeout time.Duration) {
	h.mu.RLock()
	users := make([]*User, len(h.us))
	copy(users, h.us)
	h.mu.RUnlock()
	if len(users) == 0 {
		return
	}

	state := NewStateResponse(h.journeyService.State())
	payloads := make(map[Codec][]byte, 2)

	for _, user := range users {
		codec := user.Codec()
		payload, ok := payloads[codec]
		if !ok {
			var err error
			payload, err = codec.marshal(envelope{"data": state})
			if err != nil {
				h.log.Error("encode state", zap.Error(err))
				return
			}
			payloads[codec] = payload
		}

		u := user
		err := h.pool.ScheduleTimeout(timeout, func() {
			if err := u.writeRaw(codec.opCode(), payload); err != nil {
				h.log.Debug("drop websocket user", zap.Uint("user", u.id), zap.Error(err))
				h.Drop(u)
			}
		})
		if err != nil {
			h.log.Debug("state frame dropped", zap.Uint("user", u.id), zap.Error(err))
		}
	}
}

// Run broadcasts every interval until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast(interval)
		}
	}
}
