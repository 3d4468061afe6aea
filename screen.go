package chip8vm

const (
	ScreenWidth  = 64
	ScreenHeight = 32
	// ScreenBytes is the size of the packed framebuffer, 8 pixels per byte
	ScreenBytes = ScreenWidth * ScreenHeight / 8
)

// Screen representation
// Pixels are packed row by row, the most significant bit of each byte is the
// leftmost pixel.
type Screen [ScreenBytes]byte

func (s *Screen) Clear() {
	*s = Screen{}
}

func toScreenCoord(x, y int) (int, byte) {
	x = x % ScreenWidth
	y = y % ScreenHeight
	t := y*ScreenWidth + x

	return t / 8, 0x80 >> byte(t%8)
}

// Pixel reports whether the pixel at x, y is set. Coordinates wrap.
func (s *Screen) Pixel(x, y int) bool {
	i, mask := toScreenCoord(x, y)
	return s[i]&mask != 0
}

// DrawSprite XORs the sprite rows onto the screen at x, y.
// Sprites wrap around to the opposite side of the screen.
// Returns whether any set pixel was erased.
func (s *Screen) DrawSprite(x, y byte, sprite []byte) bool {
	collision := false
	for row, b := range sprite {
		for col := 0; col < 8; col++ {
			if b&(0x80>>byte(col)) == 0 {
				continue
			}

			i, mask := toScreenCoord(int(x)+col, int(y)+row)
			if s[i]&mask != 0 {
				collision = true
			}
			s[i] ^= mask
		}
	}

	return collision
}

// Rows unpacks the screen into one bool per pixel
func (s *Screen) Rows() [ScreenHeight][ScreenWidth]bool {
	var rows [ScreenHeight][ScreenWidth]bool
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			rows[y][x] = s.Pixel(x, y)
		}
	}

	return rows
}
