package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/palette"
)

const (
	ToolbarGap       = 5
	ToolbarBtnWidth  = 80
	ToolbarBtnHeight = 40
	ToolbarHeight    = 50
	ToolbarBtnOffset = ToolbarBtnWidth + ToolbarGap

	ScreenPixelSize = 15
	ScreenPositionX = 0
	ScreenPositionY = ToolbarHeight + 1

	MessageBarGap   = 5
	MessageBarHeigh = 30
)

var MessageBarBgColor = rl.DarkGray
var MessageBarInfoColor = rl.SkyBlue
var MessageBarSuccessColor = rl.Lime
var MessageBarWarningColor = rl.Gold
var MessageBarErrorColor = rl.Red

type MessageType byte

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

type AppConfig struct {
	Speed uint
	// UseDebugger starts in step-by-step mode: Enter steps, Delete continues
	UseDebugger bool
	Color       palette.Color
	Buzzer      chip8vm.Buzzer
	Logger      *slog.Logger
	Cpu         []chip8vm.CpuConfigCb
}

type AppConfigCb func(config *AppConfig)

type App struct {
	*chip8vm.InMemoryKeyboard
	// The underlying console
	Cpu     *chip8vm.Cpu
	stepper chip8vm.ChannelStepper
	logger  *slog.Logger

	// Speed in Hz is speedFactor+1 * 5
	speedFactor float32

	screenMu   sync.Mutex
	screen     chip8vm.Screen
	pixelColor rl.Color

	keyboardLayout    chip8vm.KeyboardLayout
	keyboardLookupMap map[ScanCode]byte

	// Window width and height
	winW, winH int

	// Toolbar
	startBtn, stopBtn, stepBtn, restBtn bool

	loadedProgramPath string
	restartCh         chan struct{}
	quit              atomic.Bool

	messageMu        sync.Mutex
	lastMessage      string
	lastMessageColor rl.Color
}

func speedFactorToHz(s float32) uint {
	return uint((s + 1) * 5)
}

func hzToSpeedFactor(hz uint) float32 {
	return float32(hz)/5 - 1
}

func NewApp(configs ...AppConfigCb) *App {
	config := &AppConfig{
		Speed:       chip8vm.DefaultSpeed,
		UseDebugger: false,
		Color:       palette.Default,
		Buzzer:      chip8vm.NewDummyBuzzer(),
		Logger:      slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &App{
		InMemoryKeyboard:  chip8vm.NewInMemoryKeyboard(),
		logger:            config.Logger,
		speedFactor:       hzToSpeedFactor(config.Speed),
		pixelColor:        toRlColor(config.Color),
		keyboardLayout:    chip8vm.DefaultKeyboardLayout,
		keyboardLookupMap: map[ScanCode]byte{},
		restartCh:         make(chan struct{}, 1),
	}

	cpuConfigs := append([]chip8vm.CpuConfigCb{func(c *chip8vm.CpuConfig) {
		c.SpeedInHz = config.Speed
		c.Logger = config.Logger
	}}, config.Cpu...)
	if config.UseDebugger {
		app.stepper = chip8vm.NewChannelStepper()
		cpuConfigs = append(cpuConfigs, func(c *chip8vm.CpuConfig) {
			c.Stepper = app.stepper
		})
	}
	app.Cpu = chip8vm.NewCpu(chip8vm.NewMemory(), app, app.InMemoryKeyboard, config.Buzzer, cpuConfigs...)

	app.updateKeyboardLookupMap()
	app.updateWindowSize()

	return app
}

// Run opens the window and runs the CPU until the window is closed.
// raylib must be driven from the main thread.
func (app *App) Run(ctx context.Context, autostart bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.Cpu.Boot(); err != nil {
		return err
	}
	if !autostart || !app.hasProgramLoaded() {
		app.Cpu.Stop()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.runCpu(ctx)
	}()

	rl.InitWindow(int32(app.winW), int32(app.winH), "chip8vm")
	defer rl.CloseWindow()

	// Escape is a debug key
	rl.SetExitKey(0)
	app.loadStyles()
	rl.SetTargetFPS(60)
	for !rl.WindowShouldClose() && !app.quit.Load() {
		rl.BeginDrawing()

		rl.ClearBackground(rl.Black)

		app.handleFileLoad()
		app.handleActions()
		app.handleKeyPress()
		app.handleDebugKeys()
		app.updateCpuSpeed()

		// Sections get rendered from bottom to the top so that the toolbar stays on top
		app.drawMessageBar()
		app.drawScreen()
		app.drawToolbar()

		rl.EndDrawing()
	}

	cancel()
	<-done

	return nil
}

// runCpu restarts the loop every time a program is loaded or reset
func (app *App) runCpu(ctx context.Context) {
	app.logger.Info("starting CPU loop")
	for {
		err := app.Cpu.Loop(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			app.showMessage(err.Error(), MessageError)
			app.logger.Error("CPU stopped", slog.Any("error", err))
		case app.Cpu.IsHalted():
			app.showMessage("Program halted", MessageSuccess)
		default:
			app.quit.Store(true)
			return
		}

		select {
		case <-app.restartCh:
		case <-ctx.Done():
			return
		}
	}
}

func (app *App) restart() {
	select {
	case app.restartCh <- struct{}{}:
	default:
	}
}

func (app *App) Load(path string) {
	if err := app.Cpu.LoadProgramFile(path); err != nil {
		app.logger.Error("Error loading program", slog.String("path", path), slog.Any("error", err))
		app.showMessage(err.Error(), MessageError)
		return
	}

	app.loadedProgramPath = path
	app.showMessage(fmt.Sprintf("Program '%s' loaded", app.loadedProgramPath), MessageInfo)
	app.restart()

	app.Cpu.Start()
}

func (app *App) updateWindowSize() {
	app.winW = chip8vm.ScreenWidth * ScreenPixelSize
	app.winH = chip8vm.ScreenHeight*ScreenPixelSize + ToolbarHeight + MessageBarHeigh
	app.logger.Debug("Updating window size", slog.Int("width", app.winW), slog.Int("height", app.winH))
}

func (app *App) updateKeyboardLookupMap() {
	runeToConsoleKey := chip8vm.LookupMap(app.keyboardLayout)
	for r, k := range runeToConsoleKey {
		app.keyboardLookupMap[runeToKey[r]] = k
	}
}

func (app *App) loadStyles() {
	app.logger.Debug("Loading styles")
	gui.LoadStyleDefault()
}

func (app *App) handleFileLoad() {
	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		defer rl.UnloadDroppedFiles()

		app.logger.Info("Files were dropped", "files", strings.Join(files, ","))

		if len(files) > 0 {
			app.Load(files[0])
		}
	}
}

func (app *App) hasProgramLoaded() bool {
	return len(app.loadedProgramPath) > 0
}

func (app *App) handleActions() {
	if app.startBtn {
		if app.hasProgramLoaded() {
			if app.Cpu.IsDebugging() {
				app.stepper.Send(chip8vm.StepContinue)
			}
			app.Cpu.Start()
			app.logger.Info("Starting the console")
		} else {
			app.showMessage("There is no program loaded", MessageError)
		}
	}
	if app.stopBtn {
		app.Cpu.Stop()
		app.logger.Info("Stopping the console")
	}
	if app.restBtn {
		app.Cpu.Reset()
		app.restart()
		app.logger.Info("Resetting the program to the beginning")
	}
	if app.stepBtn {
		app.step()
	}
}

func (app *App) step() {
	if app.Cpu.IsRunning() && app.Cpu.IsDebugging() {
		app.stepper.Send(chip8vm.StepNext)
		return
	}

	if err := app.Cpu.LoopOnce(); err != nil && !errors.Is(err, chip8vm.ErrCpuIsNotBooted) {
		app.showMessage(err.Error(), MessageError)
	}
}

func (app *App) handleKeyPress() {
	var state chip8vm.KeyboardState
	for scanCode, key := range app.keyboardLookupMap {
		state[key] = rl.IsKeyDown(scanCode)
	}
	app.InMemoryKeyboard.Set(state)
}

// handleDebugKeys maps Enter to a single step, Delete to leaving debug mode
// and Escape to quitting
func (app *App) handleDebugKeys() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		app.quit.Store(true)
		return
	}

	if app.stepper == nil {
		return
	}

	if rl.IsKeyPressed(rl.KeyEnter) {
		app.step()
	}
	if rl.IsKeyPressed(rl.KeyDelete) {
		app.stepper.Send(chip8vm.StepContinue)
	}
}

func (app *App) updateCpuSpeed() {
	app.Cpu.SetSpeedInHz(speedFactorToHz(app.speedFactor))
}

const (
	MinSpeed = float32(chip8vm.MinSpeed/5) - 1
	MaxSpeed = float32(chip8vm.MaxSpeed/5) - 1
)

func (app *App) drawToolbar() {
	rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth()), ToolbarHeight, rl.Gray)

	app.startBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*0, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PLAY, "Start"),
	)
	app.stopBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*1, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_STOP, "Stop"),
	)
	app.stepBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*2, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_NEXT, "Step"),
	)
	app.restBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*3, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_ROTATE, "Reset"),
	)

	status := "Stopped"
	switch {
	case app.Cpu.IsRunning() && app.Cpu.IsDebugging():
		status = "Debugging"
	case app.Cpu.IsRunning():
		status = "Running"
	}
	gui.Label(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*4, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		status,
	)

	gui.Label(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, 26, 50, 20),
		fmt.Sprintf("%d Hz", speedFactorToHz(app.speedFactor)),
	)

	if gui.Button(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150+50, 26, 50, 20),
		gui.IconText(gui.ICON_ROTATE, ""),
	) {
		app.speedFactor = hzToSpeedFactor(chip8vm.DefaultSpeed)
	}

	app.speedFactor = gui.Slider(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, ToolbarGap, 100, 20),
		"5 Hz", "5000 Hz",
		app.speedFactor,
		MinSpeed,
		MaxSpeed,
	)
}

func (app *App) showMessage(msg string, mType MessageType) {
	app.messageMu.Lock()
	defer app.messageMu.Unlock()

	app.lastMessage = msg
	switch mType {
	case MessageInfo:
		app.lastMessageColor = MessageBarInfoColor

	case MessageSuccess:
		app.lastMessageColor = MessageBarSuccessColor

	case MessageWarning:
		app.lastMessageColor = MessageBarWarningColor

	case MessageError:
		app.lastMessageColor = MessageBarErrorColor
	}
}

func (app *App) drawMessageBar() {
	app.messageMu.Lock()
	msg, color := app.lastMessage, app.lastMessageColor
	app.messageMu.Unlock()

	rl.DrawRectangle(
		0,
		int32(app.winH)-MessageBarHeigh,
		int32(app.winW),
		MessageBarHeigh,
		MessageBarBgColor,
	)

	rl.DrawText(
		msg,
		MessageBarGap,
		int32(app.winH)-MessageBarHeigh+MessageBarGap,
		16,
		color,
	)
}
