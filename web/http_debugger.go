package web

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/guslan/chip8vm"
)

// HttpDebugger streams the machine state to a websocket after every cycle
type HttpDebugger struct {
	Cpu    *chip8vm.Cpu
	logger *slog.Logger

	// SendEvery publishes one state every n cycles
	SendEvery uint

	subsMu sync.Mutex
	subs   map[chan chip8vm.Snapshot]struct{}
}

// NewHttpDebugger creates a new debugger and registers its hooks
func NewHttpDebugger(cpu *chip8vm.Cpu, logger *slog.Logger) *HttpDebugger {
	deb := HttpDebugger{
		Cpu:       cpu,
		logger:    logger,
		SendEvery: 1,
		subs:      make(map[chan chip8vm.Snapshot]struct{}),
	}

	cpu.AddAfterCycleHook(deb.afterCycle)
	cpu.AddErrorHook(deb.afterCycle)

	return &deb
}

func (d *HttpDebugger) handle(w http.ResponseWriter, r *http.Request) {
	d.logger.Info("Connecting to debugger")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Error("upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	send := d.subscribe()
	defer d.unsubscribe(send)

	if err := conn.WriteMessage(websocket.BinaryMessage, formatAsEvent(d.Cpu.Snapshot())); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	d.logger.Debug("Listening for events")
	for {
		select {
		case s := <-send:
			if err := conn.WriteMessage(websocket.BinaryMessage, formatAsEvent(s)); err != nil {
				d.logger.Error("Error writing debugger message", slog.Any("error", err))
				return
			}

		case <-closed:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// subscribe registers a connection, each one gets every published state
func (d *HttpDebugger) subscribe() chan chip8vm.Snapshot {
	ch := make(chan chip8vm.Snapshot, 1)

	d.subsMu.Lock()
	d.subs[ch] = struct{}{}
	d.subsMu.Unlock()

	return ch
}

func (d *HttpDebugger) unsubscribe(ch chan chip8vm.Snapshot) {
	d.subsMu.Lock()
	delete(d.subs, ch)
	d.subsMu.Unlock()
}

// afterCycle runs with the CPU locked, a slow subscriber only keeps the latest state
func (d *HttpDebugger) afterCycle(cpu *chip8vm.Cpu) {
	if d.SendEvery > 1 && cpu.Cycles()%d.SendEvery != 0 {
		return
	}

	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if len(d.subs) == 0 {
		return
	}

	s := cpu.Capture()
	for ch := range d.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// formatAsEvent lays the state out as
// opcode, pc, V0-VF, I, sp, stack, dt, st, width, height, flags
// with 16-bit values big-endian
func formatAsEvent(s chip8vm.Snapshot) []byte {
	buf := make([]byte, 0, 64)

	buf = append(buf, byte(s.OpCode>>8), byte(s.OpCode))
	buf = append(buf, byte(s.Pc>>8), byte(s.Pc))
	buf = append(buf, s.V[:]...)
	buf = append(buf, byte(s.I>>8), byte(s.I))
	buf = append(buf, s.Sp)
	for _, b := range s.Stack {
		buf = append(buf, byte(b>>8), byte(b))
	}
	buf = append(buf, s.Delay)
	buf = append(buf, s.Sound)
	buf = append(buf, chip8vm.ScreenWidth)
	buf = append(buf, chip8vm.ScreenHeight)

	var flags byte
	if s.Running {
		flags |= 1 << 0
	}
	if s.Debugging {
		flags |= 1 << 1
	}
	if s.WaitingForKey {
		flags |= 1 << 2
	}
	if s.Halted {
		flags |= 1 << 3
	}
	buf = append(buf, flags)

	return buf
}
