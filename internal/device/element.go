package device

import "context"

// ElementRect polls for the element at xpath and returns its bounds.
func (d *Device) ElementRect(ctx context.Context, xpath string, opts ElementOptions) (Result[Rect], error) {
	if err := d.require(d.profile.Elements, "ElementRect"); err != nil {
		return NotFound[Rect](), err
	}
	resp, found, err := d.pollUntil(ctx, opts.Wait, SentinelRect, "getElementRect", d.scoped(opts.Window, xpath)...)
	if err != nil || !found {
		return NotFound[Rect](), err
	}
	r, err := ParseRect(resp)
	if err != nil {
		return NotFound[Rect](), &ResponseError{Command: "getElementRect", Payload: resp, Err: err}
	}
	return Found(r), nil
}

func (d *Device) ElementText(ctx context.Context, xpath string, opts ElementOptions) (Result[string], error) {
	if err := d.require(d.profile.Elements, "ElementText"); err != nil {
		return NotFound[string](), err
	}
	resp, found, err := d.pollUntil(ctx, opts.Wait, SentinelNull, "getElementText", d.scoped(opts.Window, xpath)...)
	if err != nil || !found {
		return NotFound[string](), err
	}
	return Found(resp), nil
}

func (d *Device) SetElementText(ctx context.Context, xpath, text string, opts ElementOptions) (bool, error) {
	if err := d.require(d.profile.Elements, "SetElementText"); err != nil {
		return false, err
	}
	return d.pollBool(ctx, opts.Wait, "setElementText", d.scoped(opts.Window, xpath, text)...)
}

func (d *Device) ClickElement(ctx context.Context, xpath string, opts ElementOptions) (bool, error) {
	if err := d.require(d.profile.Elements, "ClickElement"); err != nil {
		return false, err
	}
	return d.pollBool(ctx, opts.Wait, "clickElement", d.scoped(opts.Window, xpath)...)
}

// ElementExists reports whether xpath resolves before the wait runs out.
func (d *Device) ElementExists(ctx context.Context, xpath string, opts ElementOptions) (bool, error) {
	if err := d.require(d.profile.Elements, "ElementExists"); err != nil {
		return false, err
	}
	return d.pollBool(ctx, opts.Wait, "existsElement", d.scoped(opts.Window, xpath)...)
}
