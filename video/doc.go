// Package video provides the image and codec capabilities used by the
// conference canvas mixer.
//
// Frames are YUV420 (I420) images with even dimensions. The package offers
// the primitive operations the compositor needs and nothing more:
//
//   - allocation and copy: NewVideoFrame, NewSolidFrame, Clone, CopyInto
//   - geometry: Scaler.Scale (bilinear), Scaler.Fit, Scaler.FindPosition, Crop
//   - compositing: Patch, FillRect
//   - assets: ReadPNG, FromImage, ScaleImage, RenderText (banner strips)
//   - placeholders: Chain and NewMuteChain for muted-video snapshots
//   - codecs: the Encoder interface and a PassthroughEncoder reference codec
//
// # Compositing
//
// Layer compositing is a scale followed by a patch:
//
//	scaled, err := scaler.Scale(src, w, h)
//	if err != nil {
//	    return err
//	}
//	video.Patch(canvas, scaled, x, y)
//
// Patch and FillRect clip to the destination and never fail, so callers can
// hand them untrusted geometry.
//
// # Codecs
//
// The mixer treats codecs as opaque. An Encoder may return ErrMoreData when
// it has buffered input without producing output; callers retry on their
// next frame period rather than looping.
//
// # Thread Safety
//
// Frames carry no locks. Callers serialise access to shared frames, e.g. the
// canvas image is guarded by its canvas. Scaler is stateless and safe for
// concurrent use.
package video
