package device

import "context"

// Click taps p.
func (d *Device) Click(ctx context.Context, p Point) (bool, error) {
	return d.call(ctx, "click", p.X, p.Y)
}

// LongClick presses p for opts.Duration.
func (d *Device) LongClick(ctx context.Context, p Point, opts SwipeOptions) (bool, error) {
	return d.call(ctx, "longClick", p.X, p.Y, opts.millis())
}

func (d *Device) Swipe(ctx context.Context, from, to Point, opts SwipeOptions) (bool, error) {
	return d.call(ctx, "swipe", from.X, from.Y, to.X, to.Y, opts.millis())
}

// SendKeys types text into the focused field.
func (d *Device) SendKeys(ctx context.Context, text string) (bool, error) {
	return d.call(ctx, "sendKeys", text)
}

// SendVK sends a virtual key code.
func (d *Device) SendVK(ctx context.Context, code int) (bool, error) {
	return d.call(ctx, "sendVk", code)
}

func (d *Device) Clipboard(ctx context.Context) (Result[string], error) {
	resp, err := d.inv.Invoke(ctx, "getClipboardText")
	if err != nil || resp == SentinelNull {
		return NotFound[string](), err
	}
	return Found(resp), nil
}

func (d *Device) SetClipboard(ctx context.Context, text string) (bool, error) {
	return d.call(ctx, "setClipboardText", text)
}
