// Package errs defines the error kinds named in spec.md §7. Every fatal
// error raised by the codec wraps exactly one of these sentinels so callers
// can classify failures with errors.Is regardless of which component raised
// them.
package errs

import "errors"

var (
	// ErrInvalidConfig: bin layout violates band constraints, or K*6 isn't
	// a multiple of 8.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrCorruptCompression: Huffman code lengths sum inconsistently, or
	// the packed stream ends mid-symbol.
	ErrCorruptCompression = errors.New("corrupt compression stream")

	// ErrUncorrectableFEC: a Reed-Solomon block exceeded its correction
	// budget.
	ErrUncorrectableFEC = errors.New("uncorrectable FEC block")

	// ErrAuthFailed: AES-GCM tag verification failed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadCRC: CRC-32 mismatch on an unencrypted frame.
	ErrBadCRC = errors.New("CRC mismatch")

	// ErrNoPreamble: no preamble candidate found before the source was
	// exhausted or the idle timeout expired.
	ErrNoPreamble = errors.New("no preamble detected")

	// ErrSyncLost: pilot-derived residual phase exceeded π/4 across a
	// symbol.
	ErrSyncLost = errors.New("carrier sync lost")

	// ErrCancelled: the caller's cancellation signal fired.
	ErrCancelled = errors.New("cancelled")

	// ErrIOExhausted: the source returned end-of-stream before the frame
	// completed.
	ErrIOExhausted = errors.New("source exhausted before frame completed")
)
