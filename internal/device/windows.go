package device

import "context"

// MouseButton selects the click kind for ClickMouse.
type MouseButton int

const (
	MouseLeft MouseButton = iota + 1
	MouseRight
	MouseMiddle
	MouseLeftDouble
	MouseRightDouble
)

// MouseOptions addresses a mouse action. ElementHwnd targets a child
// control for background input.
type MouseOptions struct {
	ElementHwnd string
	Mode        bool
}

// FindWindow returns the handle of the first top-level window matching
// className and windowName; empty strings match anything.
func (d *Device) FindWindow(ctx context.Context, className, windowName string) (Result[string], error) {
	if err := d.require(d.profile.Windows, "FindWindow"); err != nil {
		return NotFound[string](), err
	}
	resp, err := d.inv.Invoke(ctx, "findWindow", className, windowName)
	if err != nil || resp == SentinelNull || resp == "" {
		return NotFound[string](), err
	}
	return Found(resp), nil
}

// WindowPos returns the bounds of hwnd.
func (d *Device) WindowPos(ctx context.Context, hwnd string) (Result[Rect], error) {
	if err := d.require(d.profile.Windows, "WindowPos"); err != nil {
		return NotFound[Rect](), err
	}
	resp, err := d.inv.Invoke(ctx, "getWindowPos", hwnd)
	if err != nil || resp == SentinelRect || resp == SentinelNull {
		return NotFound[Rect](), err
	}
	r, err := ParseRect(resp)
	if err != nil {
		return NotFound[Rect](), &ResponseError{Command: "getWindowPos", Payload: resp, Err: err}
	}
	return Found(r), nil
}

// ShowWindow shows or hides hwnd.
func (d *Device) ShowWindow(ctx context.Context, hwnd string, show bool) (bool, error) {
	if err := d.require(d.profile.Windows, "ShowWindow"); err != nil {
		return false, err
	}
	return d.call(ctx, "showWindow", hwnd, show)
}

func (d *Device) MoveMouse(ctx context.Context, hwnd string, p Point, opts MouseOptions) (bool, error) {
	if err := d.require(d.profile.Windows, "MoveMouse"); err != nil {
		return false, err
	}
	return d.call(ctx, "moveMouse", d.withMode(opts.Mode, hwnd, p.X, p.Y, opts.ElementHwnd)...)
}

func (d *Device) ClickMouse(ctx context.Context, hwnd string, p Point, button MouseButton, opts MouseOptions) (bool, error) {
	if err := d.require(d.profile.Windows, "ClickMouse"); err != nil {
		return false, err
	}
	if button == 0 {
		button = MouseLeft
	}
	return d.call(ctx, "clickMouse", d.withMode(opts.Mode, hwnd, p.X, p.Y, int(button), opts.ElementHwnd)...)
}
