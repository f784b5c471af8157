// Package term renders the emulator in a text terminal using termbox.
//
// Two display rows share one terminal cell, drawn with half block glyphs.
// Terminals only report key presses, so a pressed key is held down for a
// fixed duration and then released, unless it repeats in the meantime.
package term

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	"unicode"

	"github.com/kapitanov/chip8emu/internal/emulator"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/nsf/termbox-go"
)

const (
	DefaultKeyHold = 150 * time.Millisecond

	eventQueueSize = 64
	fgColor        = termbox.ColorYellow
	bgColor        = termbox.ColorBlack
)

type Terminal struct {
	events  chan termbox.Event
	held    map[vm.Key]time.Time // release deadline per pressed key
	keyHold time.Duration
	now     func() time.Time
	bell    io.Writer
}

var _ emulator.HAL = (*Terminal)(nil)

func New(keyHold time.Duration) (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("failed to init termbox: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	t := newTerminal(keyHold)
	go t.pollEvents()

	slog.Debug("term: init", "keyHold", keyHold)
	return t, nil
}

func newTerminal(keyHold time.Duration) *Terminal {
	return &Terminal{
		events:  make(chan termbox.Event, eventQueueSize),
		held:    make(map[vm.Key]time.Time),
		keyHold: keyHold,
		now:     time.Now,
		bell:    os.Stdout,
	}
}

func (t *Terminal) pollEvents() {
	for {
		ev := termbox.PollEvent()
		if ev.Type == termbox.EventInterrupt {
			close(t.events)
			return
		}

		select {
		case t.events <- ev:
		default:
			slog.Debug("term: drop event", "type", ev.Type)
		}
	}
}

func (t *Terminal) Shutdown() {
	termbox.Interrupt()
	termbox.Close()
}

func (t *Terminal) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	now := t.now()

	for key, deadline := range t.held {
		if !now.Before(deadline) {
			delete(t.held, key)
			keyUp(key)
		}
	}

	for {
		select {
		case ev, ok := <-t.events:
			if !ok {
				return emulator.ErrQuit
			}
			if err := t.processEvent(ev, now, keyDown); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (t *Terminal) processEvent(ev termbox.Event, now time.Time, keyDown func(vm.Key)) error {
	switch ev.Type {
	case termbox.EventError:
		return fmt.Errorf("terminal input: %w", ev.Err)

	case termbox.EventKey:
		switch ev.Key {
		case termbox.KeyEsc, termbox.KeyCtrlC:
			slog.Debug("term: exit requested")
			return emulator.ErrQuit
		case termbox.KeyBackspace, termbox.KeyBackspace2:
			return emulator.ErrReboot
		}

		key, ok := KeyForRune(ev.Ch)
		if !ok {
			return nil
		}
		if _, pressed := t.held[key]; !pressed {
			keyDown(key)
		}
		t.held[key] = now.Add(t.keyHold)
	}

	return nil
}

// KeyForRune maps the left hand block of a QWERTY keyboard to the keypad.
//
//	1 2 3 4        1 2 3 C
//	q w e r        4 5 6 D
//	a s d f  <=>   7 8 9 E
//	z x c v        A 0 B F
func KeyForRune(r rune) (vm.Key, bool) {
	switch unicode.ToLower(r) {
	case 'x':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q':
		return vm.Key4, true
	case 'w':
		return vm.Key5, true
	case 'e':
		return vm.Key6, true
	case 'a':
		return vm.Key7, true
	case 's':
		return vm.Key8, true
	case 'd':
		return vm.Key9, true
	case 'z':
		return vm.KeyA, true
	case 'c':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r':
		return vm.KeyD, true
	case 'f':
		return vm.KeyE, true
	case 'v':
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (t *Terminal) Draw(display vm.Display) error {
	if err := termbox.Clear(bgColor, bgColor); err != nil {
		return fmt.Errorf("failed to clear terminal: %w", err)
	}

	for y := 0; y < vm.ScreenHeight; y += 2 {
		for x := 0; x < vm.ScreenWidth; x++ {
			ch := cellRune(display.Pixel(x, y), display.Pixel(x, y+1))
			termbox.SetCell(x, y/2, ch, fgColor, bgColor)
		}
	}

	if err := termbox.Flush(); err != nil {
		return fmt.Errorf("failed to flush terminal: %w", err)
	}
	return nil
}

// cellRune picks the glyph for a cell holding two vertically stacked pixels.
func cellRune(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}

func (t *Terminal) Beep() error {
	if _, err := io.WriteString(t.bell, "\a"); err != nil {
		return fmt.Errorf("failed to ring bell: %w", err)
	}
	return nil
}
