// Package corerr defines the sentinel error kinds shared by every core
// component. Callers use errors.Is against these values rather than string
// matching; Wrap attaches an optional lower-level cause, and its
// Unwrap() []error exposes both the kind and the cause to errors.Is.
package corerr

import "errors"

var (
	// ErrFrameUnavailable is returned when a single frame could not be
	// decoded: the toolchain failed, the timestamp was past the clip's
	// duration, or the output was empty.
	ErrFrameUnavailable = errors.New("frame unavailable")

	// ErrDurationUnavailable is returned when a clip's duration could not
	// be queried.
	ErrDurationUnavailable = errors.New("duration unavailable")

	// ErrToolchainMissing is returned when ffmpeg/ffprobe are not on PATH.
	ErrToolchainMissing = errors.New("media toolchain missing")

	// ErrEmbeddingUnavailable is a soft error: the semantic encoder could
	// not produce an embedding for a frame. Callers degrade to "no
	// embedding" rather than aborting the clip.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrCacheCorrupt is returned when an on-disk fingerprint cache could
	// not be parsed. Callers discard it and rebuild.
	ErrCacheCorrupt = errors.New("fingerprint cache corrupt")

	// ErrGraphHeaderMismatch is returned when a persisted similarity graph's
	// header does not match the parameters of the current request.
	ErrGraphHeaderMismatch = errors.New("similarity graph header mismatch")

	// ErrAssemblyFailed is fatal for a single assembly request.
	ErrAssemblyFailed = errors.New("chain assembly failed")

	// ErrCancelled is returned when a caller-supplied context is cancelled
	// mid-pass.
	ErrCancelled = errors.New("operation cancelled")

	// ErrConfigInvalid is returned at construction time, before any
	// partial state is created.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Wrap annotates err with msg while preserving errors.Is(err, kind) for the
// sentinel kind.
func Wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return &wrapped{kind: kind, msg: msg}
	}
	return &wrapped{kind: kind, msg: msg, cause: cause}
}

type wrapped struct {
	kind  error
	msg   string
	cause error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.msg
	}
	return w.msg + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	if w.cause == nil {
		return []error{w.kind}
	}
	return []error{w.kind, w.cause}
}
