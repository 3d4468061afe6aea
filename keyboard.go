package chip8vm

import "sync"

// KeyCount is the number of keys of the keypad
const KeyCount = 16

type KeyboardState [KeyCount]bool

type Keyboard interface {
	// Boot initializes the component
	Boot() error
	IsPressed(k byte) bool
	// State returns the whole key table at once
	State() KeyboardState
}

// InMemoryKeyboard is a key table that frontends write into and the CPU
// reads from. It is safe for concurrent use.
type InMemoryKeyboard struct {
	mu    sync.RWMutex
	state KeyboardState
}

func NewInMemoryKeyboard() *InMemoryKeyboard {
	return &InMemoryKeyboard{}
}

// Boot implements Keyboard.
func (kb *InMemoryKeyboard) Boot() error {
	return nil
}

func (kb *InMemoryKeyboard) IsPressed(k byte) bool {
	if k >= KeyCount {
		return false
	}

	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state[k]
}

// State implements Keyboard.
func (kb *InMemoryKeyboard) State() KeyboardState {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state
}

// Set replaces the whole key table, used by frontends that sample every key
// once per frame
func (kb *InMemoryKeyboard) Set(state KeyboardState) {
	kb.mu.Lock()
	kb.state = state
	kb.mu.Unlock()
}

func (kb *InMemoryKeyboard) Press(k byte) {
	kb.setKey(k, true)
}

func (kb *InMemoryKeyboard) Release(k byte) {
	kb.setKey(k, false)
}

func (kb *InMemoryKeyboard) setKey(k byte, pressed bool) {
	if k >= KeyCount {
		return
	}

	kb.mu.Lock()
	kb.state[k] = pressed
	kb.mu.Unlock()
}

// KeyboardLayout lists the physical key for each logical key 0x0-0xF
type KeyboardLayout [KeyCount]rune

// DefaultKeyboardLayout maps the hex keypad
//
//	1 2 3 C        1 2 3 4
//	4 5 6 D   to   q w e r
//	7 8 9 E        a s d f
//	A 0 B F        z x c v
var DefaultKeyboardLayout = KeyboardLayout{
	0x0: 'x',
	0x1: '1',
	0x2: '2',
	0x3: '3',
	0x4: 'q',
	0x5: 'w',
	0x6: 'e',
	0x7: 'a',
	0x8: 's',
	0x9: 'd',
	0xA: 'z',
	0xB: 'c',
	0xC: '4',
	0xD: 'r',
	0xE: 'f',
	0xF: 'v',
}

// LookupMap returns the logical key for every physical rune of the layout
func LookupMap(layout KeyboardLayout) map[rune]byte {
	m := make(map[rune]byte, KeyCount)
	for k, r := range layout {
		m[r] = byte(k)
	}

	return m
}
