package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/chip8vm"
)

type Server struct {
	*chip8vm.InMemoryKeyboard

	cpu      *chip8vm.Cpu
	stepper  chip8vm.ChannelStepper
	debugger *HttpDebugger
	logger   *slog.Logger
	mux      *http.ServeMux

	socket  *websocket.Conn
	wsMutex sync.Mutex

	resetCh chan struct{}
}

type ServerConfig struct {
	// UseDebugger serves /debugger and starts in step-by-step mode
	UseDebugger bool
	Buzzer      chip8vm.Buzzer
	Logger      *slog.Logger
	// StaticDir is served on / when set
	StaticDir string
	Cpu       []chip8vm.CpuConfigCb
}
type ServerConfigCb func(config *ServerConfig)

func NewServer(mem *chip8vm.Memory, configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		UseDebugger: false,
		Buzzer:      chip8vm.NewDummyBuzzer(),
		Logger:      slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	s := &Server{
		InMemoryKeyboard: chip8vm.NewInMemoryKeyboard(),

		logger:  config.Logger,
		mux:     http.NewServeMux(),
		resetCh: make(chan struct{}, 1),
	}

	cpuConfigs := append([]chip8vm.CpuConfigCb{func(c *chip8vm.CpuConfig) {
		c.Logger = config.Logger
	}}, config.Cpu...)
	if config.UseDebugger {
		s.stepper = chip8vm.NewChannelStepper()
		cpuConfigs = append(cpuConfigs, func(c *chip8vm.CpuConfig) {
			c.Stepper = s.stepper
		})
	}

	s.cpu = chip8vm.NewCpu(mem, s, s.InMemoryKeyboard, config.Buzzer, cpuConfigs...)
	if config.UseDebugger {
		s.debugger = NewHttpDebugger(s.cpu, config.Logger)
		s.mux.HandleFunc("/debugger", s.debugger.handle)
	}

	if config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(config.StaticDir)))
	}
	s.mux.HandleFunc("/start", s.handleStart)
	s.mux.HandleFunc("/stop", s.handleStop)
	s.mux.HandleFunc("/reset", s.handleReset)
	s.mux.HandleFunc("/step", s.handleStep)
	s.mux.HandleFunc("/state", s.handleState)
	s.mux.HandleFunc("/display", s.handleDisplay)
	s.mux.HandleFunc("/keys", s.handleKeys)

	return s
}

func (server *Server) Cpu() *chip8vm.Cpu {
	return server.cpu
}

func (server *Server) Speed(s uint) {
	server.cpu.SetSpeedInHz(s)
}

// LoadProgram loads the program into memory and sets the PC to the start-of-program address
func (server *Server) LoadProgram(program []byte) error {
	return server.cpu.LoadProgram(program)
}

func (server *Server) LoadProgramFile(path string) error {
	return server.cpu.LoadProgramFile(path)
}

func (server *Server) Handler() http.Handler {
	return server.mux
}

// Run drives the CPU until ctx is done. A halted program waits for /reset.
func (server *Server) Run(ctx context.Context) error {
	for {
		err := server.cpu.Loop(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			server.logger.Error("Program stopped", slog.Any("error", err))
		} else {
			server.logger.Info("Program finished, waiting for a reset")
		}

		select {
		case <-server.resetCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Listen serves the HTTP API on addr and runs the CPU until ctx is done
func (server *Server) Listen(ctx context.Context, addr string) error {
	if err := server.cpu.Boot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Run(ctx)
	}()
	go func() {
		server.logger.Info("Listening", slog.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		server.logger.Error("Shutdown", slog.Any("error", shutdownErr))
	}

	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

	w.Header().Set("Cache-Control", "no-cache")
}

func (server *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	noCache(w)

	server.logger.Info("Starting")
	if server.cpu.IsDebugging() {
		server.stepper.Send(chip8vm.StepContinue)
	}
	server.cpu.Start()
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	noCache(w)

	server.logger.Info("Stopping")
	server.cpu.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	noCache(w)

	server.logger.Info("Stopping and resetting")
	server.cpu.Stop()
	server.cpu.Reset()
	select {
	case server.resetCh <- struct{}{}:
	default:
	}
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	noCache(w)

	server.logger.Debug("Single step")
	if server.cpu.IsRunning() && server.cpu.IsDebugging() {
		server.stepper.Send(chip8vm.StepNext)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if err := server.cpu.LoopOnce(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) handleState(w http.ResponseWriter, r *http.Request) {
	noCache(w)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.cpu.Snapshot()); err != nil {
		server.logger.Error("Encoding state", slog.Any("error", err))
	}
}
