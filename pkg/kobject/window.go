package kobject

import (
	"errors"
	"fmt"
)

// CreateWindow asks the window subsystem for a child of the window at
// (x, y) with the given size and wraps it in a new Window handle.
//
// Returns NotImplemented if k is not a Window. A backend failure yields a nil
// handle and the wrapped backend error; nothing is allocated in that case.
func (k *Kobject) CreateWindow(x, y, width, height int) (*Kobject, error) {
	const op = "create_window"
	if err := k.check(op); err != nil {
		return nil, err
	}

	w, ok := k.res.(windowResource)
	if !ok {
		return nil, k.fail(NotImplemented, op, nil)
	}

	child, err := w.window.CreateChild(x, y, width, height)
	if err != nil || child == nil {
		if child != nil {
			child.Release()
		}
		if err == nil {
			err = errors.New("window subsystem refused child")
		}
		k.done(op, err)
		return nil, fmt.Errorf("%s %dx%d+%d+%d: %w", op, width, height, x, y, err)
	}

	k.done(op, nil)
	return k.derive(windowResource{window: child}), nil
}

// CreateConsole binds a new console to the window and wraps it in a Console
// handle. The binder is the console subsystem; it is passed in so the handle
// layer holds no process-wide state.
func (k *Kobject) CreateConsole(binder ConsoleBinder) (*Kobject, error) {
	const op = "create_console"
	if err := k.check(op); err != nil {
		return nil, err
	}

	w, ok := k.res.(windowResource)
	if !ok {
		return nil, k.fail(NotImplemented, op, nil)
	}
	if binder == nil {
		return nil, k.fail(InvalidRequest, op, errors.New("no console binder"))
	}

	c, err := binder.CreateConsole(w.window)
	if err != nil || c == nil {
		if c != nil {
			c.Release()
		}
		if err == nil {
			err = errors.New("console subsystem refused window")
		}
		k.done(op, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	k.done(op, nil)
	return k.derive(consoleResource{console: c}), nil
}

// Move repositions the window relative to its parent.
func (k *Kobject) Move(x, y int) error {
	const op = "move"
	if err := k.check(op); err != nil {
		return err
	}

	w, ok := k.res.(windowResource)
	if !ok {
		return k.fail(NotImplemented, op, nil)
	}

	err := w.window.Move(x, y)
	k.done(op, err)
	return err
}
