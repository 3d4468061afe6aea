package chip8vm

import "sync"

// Display abstraction for a display
type Display interface {
	// Boot initializes the component
	Boot() error
	// Render receives a copy of the current framebuffer
	Render(Screen) error
}

// DummyDisplay is a display that does nothing
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(screen Screen) error {
	return nil
}

// InMemoryDisplay keeps the last rendered frame
type InMemoryDisplay struct {
	mu     sync.Mutex
	last   Screen
	frames int
}

func NewInMemoryDisplay() *InMemoryDisplay {
	return &InMemoryDisplay{}
}

// Boot implements Display.
func (d *InMemoryDisplay) Boot() error {
	return nil
}

// Render implements Display.
func (d *InMemoryDisplay) Render(screen Screen) error {
	d.mu.Lock()
	d.last = screen
	d.frames++
	d.mu.Unlock()

	return nil
}

// Last returns the last rendered frame and how many frames were rendered
func (d *InMemoryDisplay) Last() (Screen, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.last, d.frames
}
