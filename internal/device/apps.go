package device

import (
	"bytes"
	"context"
)

// PushFile writes data to remotePath on the device.
func (d *Device) PushFile(ctx context.Context, remotePath string, data []byte) (bool, error) {
	if err := d.require(d.profile.Apps, "PushFile"); err != nil {
		return false, err
	}
	resp, err := d.inv.InvokeFile(ctx, "pushFile", remotePath, data)
	if err != nil {
		return false, err
	}
	return parseBool("pushFile", resp)
}

// PullFile reads remotePath from the device. A missing file is NotFound.
func (d *Device) PullFile(ctx context.Context, remotePath string) (Result[[]byte], error) {
	if err := d.require(d.profile.Apps, "PullFile"); err != nil {
		return NotFound[[]byte](), err
	}
	raw, err := d.inv.InvokeRaw(ctx, "pullFile", remotePath)
	if err != nil {
		return NotFound[[]byte](), err
	}
	if string(bytes.TrimSpace(raw)) == SentinelNull {
		return NotFound[[]byte](), nil
	}
	return Found(raw), nil
}

func (d *Device) StartApp(ctx context.Context, name string) (bool, error) {
	if err := d.require(d.profile.Apps, "StartApp"); err != nil {
		return false, err
	}
	return d.call(ctx, "startApp", name)
}

func (d *Device) AppRunning(ctx context.Context, name string) (bool, error) {
	if err := d.require(d.profile.Apps, "AppRunning"); err != nil {
		return false, err
	}
	return d.call(ctx, "appIsRunning", name)
}

// WindowSize returns the screen size as reported by the agent.
func (d *Device) WindowSize(ctx context.Context) (Size, error) {
	resp, err := d.inv.Invoke(ctx, "getWindowSize")
	if err != nil {
		return Size{}, err
	}
	p, err := ParsePoint(resp)
	if err != nil {
		return Size{}, &ResponseError{Command: "getWindowSize", Payload: resp, Err: err}
	}
	return Size{Width: p.X, Height: p.Y}, nil
}

// Toast shows a transient message on the device.
func (d *Device) Toast(ctx context.Context, text string) (bool, error) {
	return d.call(ctx, "showToast", text)
}
