package gui

import (
	"github.com/guslan/chip8vm"
	"github.com/guslan/chip8vm/palette"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var ScreenBgColor = toRlColor(palette.Background)

func toRlColor(c palette.Color) rl.Color {
	r, g, b := c.RGB()
	return rl.NewColor(r, g, b, 255)
}

// Boot implements chip8vm.Display.
func (app *App) Boot() error {
	return nil
}

// Render implements chip8vm.Display.
// It runs on the CPU goroutine, the window reads the copy on its own.
func (app *App) Render(screen chip8vm.Screen) error {
	app.screenMu.Lock()
	app.screen = screen
	app.screenMu.Unlock()

	return nil
}

func (app *App) drawScreen() {
	app.screenMu.Lock()
	rows := app.screen.Rows()
	app.screenMu.Unlock()

	for y := 0; y < chip8vm.ScreenHeight; y++ {
		for x := 0; x < chip8vm.ScreenWidth; x++ {
			color := ScreenBgColor
			if rows[y][x] {
				color = app.pixelColor
			}

			rl.DrawRectangle(
				ScreenPositionX+ScreenPixelSize*int32(x),
				ScreenPositionY+ScreenPixelSize*int32(y),
				ScreenPixelSize,
				ScreenPixelSize,
				color)
		}
	}
}
