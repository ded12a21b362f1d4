package device

import (
	"bytes"
	"context"
)

// Screenshot captures region and returns the encoded image bytes.
func (d *Device) Screenshot(ctx context.Context, region Rect, opts OCROptions) (Result[[]byte], error) {
	args := append(region.args(), opts.Threshold.args()...)
	args = append(args, opts.scale())
	raw, err := d.inv.InvokeRaw(ctx, "takeScreenshot", d.withMode(opts.Mode, d.scoped(opts.Window, args...)...)...)
	if err != nil {
		return NotFound[[]byte](), err
	}
	if string(bytes.TrimSpace(raw)) == SentinelNull || len(raw) == 0 {
		return NotFound[[]byte](), nil
	}
	return Found(raw), nil
}

// SaveScreenshot stores a capture at remotePath on the device.
func (d *Device) SaveScreenshot(ctx context.Context, remotePath string, region Rect, opts OCROptions) (bool, error) {
	args := append([]any{remotePath}, region.args()...)
	args = append(args, opts.Threshold.args()...)
	return d.call(ctx, "saveScreenshot", d.withMode(opts.Mode, d.scoped(opts.Window, args...)...)...)
}

// GetColor returns the "#rrggbb" color at p.
func (d *Device) GetColor(ctx context.Context, p Point, opts ColorOptions) (Result[string], error) {
	resp, err := d.inv.Invoke(ctx, "getColor", d.withMode(opts.Mode, d.scoped(opts.Window, p.X, p.Y)...)...)
	if err != nil {
		return NotFound[string](), err
	}
	if resp == SentinelNull || resp == "" {
		return NotFound[string](), nil
	}
	return Found(resp), nil
}

// FindImage polls for imagePath on screen and returns the first match.
func (d *Device) FindImage(ctx context.Context, imagePath string, opts SearchOptions) (Result[Point], error) {
	points, err := d.findImage(ctx, imagePath, opts, 1)
	if err != nil || len(points) == 0 {
		return NotFound[Point](), err
	}
	return Found(points[0]), nil
}

// FindImages is FindImage returning up to opts.Multi matches.
func (d *Device) FindImages(ctx context.Context, imagePath string, opts SearchOptions) ([]Point, error) {
	return d.findImage(ctx, imagePath, opts, opts.multi())
}

func (d *Device) findImage(ctx context.Context, imagePath string, opts SearchOptions, multi int) ([]Point, error) {
	args := append([]any{imagePath}, opts.Region.args()...)
	args = append(args, opts.similarity())
	args = append(args, opts.Threshold.args()...)
	args = append(args, multi)
	args = d.withMode(opts.Mode, d.scoped(opts.Window, args...)...)

	resp, found, err := d.pollUntil(ctx, opts.Wait, d.profile.PointSentinel, "findImage", args...)
	if err != nil || !found {
		return nil, err
	}
	points, err := ParsePoints(resp)
	if err != nil {
		return nil, &ResponseError{Command: "findImage", Payload: resp, Err: err}
	}
	return points, nil
}

// FindColor polls for mainColor, plus opts.SubColors offsets, in the region.
func (d *Device) FindColor(ctx context.Context, mainColor string, opts ColorOptions) (Result[Point], error) {
	args := append([]any{mainColor, opts.SubColors}, opts.Region.args()...)
	args = append(args, opts.similarity())
	args = d.withMode(opts.Mode, d.scoped(opts.Window, args...)...)

	resp, found, err := d.pollUntil(ctx, opts.Wait, d.profile.PointSentinel, "findColor", args...)
	if err != nil || !found {
		return NotFound[Point](), err
	}
	p, err := ParsePoint(resp)
	if err != nil {
		return NotFound[Point](), &ResponseError{Command: "findColor", Payload: resp, Err: err}
	}
	return Found(p), nil
}

// CompareColor polls until the colors at p match, or the wait runs out.
func (d *Device) CompareColor(ctx context.Context, p Point, mainColor string, opts ColorOptions) (bool, error) {
	args := append([]any{p.X, p.Y, mainColor, opts.SubColors}, opts.Region.args()...)
	args = append(args, opts.similarity())
	args = d.withMode(opts.Mode, d.scoped(opts.Window, args...)...)
	return d.pollBool(ctx, opts.Wait, "compareColor", args...)
}
