package codec

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/sonic-link/soniclink/internal/audio"
	"github.com/sonic-link/soniclink/internal/compress"
	"github.com/sonic-link/soniclink/internal/config"
	"github.com/sonic-link/soniclink/internal/crypto"
	"github.com/sonic-link/soniclink/internal/errs"
	"github.com/sonic-link/soniclink/internal/fec"
	"github.com/sonic-link/soniclink/internal/framer"
	"github.com/sonic-link/soniclink/internal/modem"
	"github.com/sonic-link/soniclink/internal/trace"
)

func buildLayout(cfg *config.Config) (*modem.Layout, error) {
	return modem.NewLayout(cfg.SampleRate, cfg.FFTSize, cfg.BandLow, cfg.BandHigh, cfg.PilotSpacing)
}

// EncodeFrame assembles payload into the full waveform: start tone,
// preamble, FEC-protected OFDM data symbols, end tone. pub is required
// iff cfg.Encrypt is set.
func EncodeFrame(payload []byte, cfg *config.Config, pub *rsa.PublicKey) ([]float32, error) {
	layout, err := buildLayout(cfg)
	if err != nil {
		return nil, err
	}
	preamble := modem.BuildPreamble(layout, modem.DefaultSeed)

	body := payload
	compressed := false
	if cfg.Compress {
		body = compress.Encode(payload)
		compressed = true
	}

	header := &Header{Version: Version, Compressed: compressed}
	var trailer []byte
	if cfg.Encrypt {
		if pub == nil {
			return nil, fmt.Errorf("%w: encrypt=true requires a recipient public key", errs.ErrInvalidConfig)
		}
		sealed, err := crypto.Seal(body, pub)
		if err != nil {
			return nil, err
		}
		header.Encrypted = true
		header.WrappedKey = sealed.WrappedKey
		header.Nonce = sealed.Nonce
		header.BodyLen = uint32(len(sealed.Ciphertext))
		body = sealed.Ciphertext
		trailer = sealed.Tag
	} else {
		header.BodyLen = uint32(len(body))
	}

	headerBytes := header.Marshal()
	if !cfg.Encrypt {
		trailer = fec.CRC32Bytes(append(append([]byte{}, headerBytes...), body...))
	}

	full := append(append([]byte{}, headerBytes...), body...)
	full = append(full, trailer...)

	fecBytes := encodeBlocks(full)

	bytesPerSymbol := layout.BytesPerSymbol()
	chunks, err := framer.Frame(fecBytes, bytesPerSymbol)
	if err != nil {
		return nil, err
	}

	modulator := modem.NewModulator(layout, preamble)
	var dataSamples []float64
	for _, chunk := range chunks {
		bits := framer.BytesToBits(chunk)
		sym, err := modulator.ModulateSymbol(bits)
		if err != nil {
			return nil, err
		}
		dataSamples = append(dataSamples, sym...)
	}

	startTone := modem.GenerateTone(modem.StartToneHz, modem.StartToneMs, modem.ToneFadeMs, layout.SampleRate)
	endTone := modem.GenerateTone(modem.EndToneHz, modem.EndToneMs, modem.ToneFadeMs, layout.SampleRate)

	waveform := make([]float64, 0, len(startTone)+len(preamble.Symbol1)+len(preamble.Symbol2)+len(dataSamples)+len(endTone))
	waveform = append(waveform, startTone...)
	waveform = append(waveform, preamble.Symbol1...)
	waveform = append(waveform, preamble.Symbol2...)
	waveform = append(waveform, dataSamples...)
	waveform = append(waveform, endTone...)

	out := make([]float32, len(waveform))
	for i, s := range waveform {
		out[i] = float32(s)
	}
	return out, nil
}

// maxSearchWindowSymbols bounds how much of the incoming stream, in
// symbols, CoarseDetect rescans on every new burst, so detection cost doesn't grow with how
// long the caller has already been listening.
const maxSearchWindowSymbols = 8

// goertzelDetectThreshold is the relative-power threshold both the
// start-tone gate and the end-tone check fire at.
const goertzelDetectThreshold = 0.3

// endToneSearchMs is how long DecodeStream keeps listening for the
// end-of-frame tone after the last data symbol before giving up and
// warning instead of failing.
const endToneSearchMs = 300

// Detect listens on source for up to timeout, reporting whether a
// preamble candidate appears, without demodulating a frame. In
// continuous-listen mode the Goertzel start-tone detector gates the more
// expensive Schmidl-Cox correlation, so background noise without the
// start tone never reaches CoarseDetect.
func Detect(source audio.AudioSource, cfg *config.Config, timeout time.Duration) (bool, error) {
	layout, err := buildLayout(cfg)
	if err != nil {
		return false, err
	}
	preamble := modem.BuildPreamble(layout, modem.DefaultSeed)
	detector := modem.NewDetector(layout, preamble)
	symLen := layout.FFTSize + modem.CPLen(layout)
	startGate := modem.NewGoertzelDetector(modem.StartToneHz, layout.SampleRate, symLen)

	deadline := time.Now().Add(timeout)
	var buf []float64
	armed := false
	for time.Now().Before(deadline) {
		chunk, err := source.ReadSamples(symLen)
		if err != nil {
			return false, fmt.Errorf("%w: %v", errs.ErrIOExhausted, err)
		}
		buf = appendSamples(buf, chunk)
		if !armed {
			// The start tone precedes the preamble, not overlaps it, so
			// arming is sticky: once heard, keep correlating until the
			// preamble is found or the listen times out, rather than
			// re-checking the tone on every subsequent chunk.
			if startGate.Detect(appendSamples(nil, chunk), goertzelDetectThreshold) {
				armed = true
			} else {
				buf = trimSearchBuffer(buf, symLen)
				continue
			}
		}
		if _, ok := detector.CoarseDetect(buf); ok {
			return true, nil
		}
		buf = trimSearchBuffer(buf, symLen)
	}
	return false, nil
}

// DecodeStream listens on source, demodulates the first detected frame,
// and returns its verified payload. priv is required iff the frame turns
// out to be encrypted. cancel, when closed, aborts the operation between
// chunk reads with errs.ErrCancelled.
func DecodeStream(source audio.AudioSource, cfg *config.Config, priv *rsa.PrivateKey, sink trace.Sink, cancel <-chan struct{}) ([]byte, error) {
	if sink == nil {
		sink = trace.NopSink{}
	}
	layout, err := buildLayout(cfg)
	if err != nil {
		return nil, err
	}
	preamble := modem.BuildPreamble(layout, modem.DefaultSeed)
	detector := modem.NewDetector(layout, preamble)
	cp := modem.CPLen(layout)
	symLen := layout.FFTSize + cp
	startGate := modem.NewGoertzelDetector(modem.StartToneHz, layout.SampleRate, symLen)

	idleDeadline := time.Now().Add(time.Duration(cfg.IdleTimeoutMs) * time.Millisecond)

	var buf []float64
	preambleStart := -1
	armed := false
	for preambleStart < 0 {
		if cancelled(cancel) {
			return nil, errs.ErrCancelled
		}
		if time.Now().After(idleDeadline) {
			return nil, errs.ErrNoPreamble
		}
		chunk, err := source.ReadSamples(symLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrIOExhausted, err)
		}
		buf = appendSamples(buf, chunk)
		if !armed {
			// Sticky arming: the start tone precedes the preamble rather
			// than overlapping it, so once the tone has been heard once,
			// keep correlating every subsequent chunk instead of requiring
			// the tone to still be present in the chunk the preamble
			// itself arrives in.
			if startGate.Detect(appendSamples(nil, chunk), goertzelDetectThreshold) {
				armed = true
			} else {
				buf = trimSearchBuffer(buf, symLen)
				continue
			}
		}
		if s, ok := detector.CoarseDetect(buf); ok {
			preambleStart = s
		} else {
			buf = trimSearchBuffer(buf, symLen)
		}
	}
	sink.Trace(trace.Event{Kind: trace.EventPreambleDetected})

	if err := fillTo(source, &buf, preambleStart+2*symLen); err != nil {
		return nil, err
	}

	boundary, ok := detector.FineTiming(buf, preambleStart)
	if !ok {
		return nil, errs.ErrNoPreamble
	}

	cfoPerSample := modem.EstimateCFO(buf, preambleStart, layout.FFTSize)

	sym2Raw := buf[boundary : boundary+symLen]
	sym2Derot := modem.Derotate(sym2Raw, cfoPerSample, boundary-preambleStart)
	sym2Spectrum := modem.RealFFT(sym2Derot[cp:])

	demod := modem.NewDemodulator(layout, preamble)
	demod.SetChannelEstimate(sym2Spectrum)
	sink.Trace(trace.Event{Kind: trace.EventChannelEstimated})

	dataStart := boundary + symLen
	bytesPerSymbol := layout.BytesPerSymbol()

	var collected []byte
	totalSymbols := -1
	for i := 0; totalSymbols < 0 || i < totalSymbols; i++ {
		if cancelled(cancel) {
			return nil, errs.ErrCancelled
		}
		need := dataStart + (i+1)*symLen
		if err := fillTo(source, &buf, need); err != nil {
			return nil, err
		}

		raw := buf[dataStart+i*symLen : need]
		derot := modem.Derotate(raw, cfoPerSample, dataStart+i*symLen-preambleStart)
		bits, phase := demod.DemodulateSymbol(derot)
		if phase < 0 {
			phase = -phase
		}
		if phase > modem.MaxResidualPhase {
			return nil, errs.ErrSyncLost
		}

		symBytes, err := framer.BitsToBytes(bits)
		if err != nil {
			return nil, err
		}
		collected = append(collected, symBytes...)
		sink.Trace(trace.Event{Kind: trace.EventSymbolDecoded, Symbol: i, Bytes: len(collected), Phase: phase})

		if totalSymbols < 0 {
			declared, err := framer.PeekSymbolCount(symBytes)
			if err != nil {
				return nil, err
			}
			totalSymbols = declared
		}
	}

	checkEndTone(source, &buf, layout, symLen, sink)

	fecBytes, err := framer.Unframe(collected, bytesPerSymbol, totalSymbols)
	if err != nil {
		return nil, err
	}

	padded, err := decodeBlocks(fecBytes)
	if err != nil {
		return nil, err
	}

	header, headerLen, err := UnmarshalHeader(padded)
	if err != nil {
		return nil, err
	}
	total := headerLen + int(header.BodyLen) + header.TrailerLen()
	if total > len(padded) {
		return nil, fmt.Errorf("%w: declared frame length %d exceeds decoded %d bytes", errs.ErrBadCRC, total, len(padded))
	}
	full := padded[:total]
	bodyBytes := full[headerLen : headerLen+int(header.BodyLen)]
	trailerBytes := full[headerLen+int(header.BodyLen):]

	var plaintext []byte
	if header.Encrypted {
		if priv == nil {
			return nil, fmt.Errorf("%w: frame is encrypted but no private key was provided", errs.ErrAuthFailed)
		}
		sealed := &crypto.Sealed{WrappedKey: header.WrappedKey, Nonce: header.Nonce, Ciphertext: bodyBytes, Tag: trailerBytes}
		plaintext, err = crypto.Open(sealed, priv)
		if err != nil {
			return nil, err
		}
	} else {
		withCRC := append(append([]byte{}, full[:headerLen+int(header.BodyLen)]...), trailerBytes...)
		data, ok := fec.VerifyCRC32(withCRC)
		if !ok {
			return nil, errs.ErrBadCRC
		}
		plaintext = data[headerLen:]
	}

	if header.Compressed {
		payload, err := compress.Decode(plaintext)
		if err != nil {
			return nil, err
		}
		return payload, nil
	}
	return plaintext, nil
}

// checkEndTone looks for the end-of-frame tone in up to endToneSearchMs of
// audio past the last decoded data symbol, stopping as soon as it's
// found. Its absence only produces a trace warning: the frame has already
// been fully decoded by the time this runs, and the source running dry
// before the window closes is itself consistent with there being nothing
// more to find.
func checkEndTone(source audio.AudioSource, buf *[]float64, layout *modem.Layout, symLen int, sink trace.Sink) {
	searchSamples := layout.SampleRate * endToneSearchMs / 1000
	gate := modem.NewGoertzelDetector(modem.EndToneHz, layout.SampleRate, symLen)

	for read := 0; read+symLen <= searchSamples; read += symLen {
		chunk, err := source.ReadSamples(symLen)
		if err != nil {
			break
		}
		chunkF64 := appendSamples(nil, chunk)
		*buf = append(*buf, chunkF64...)
		if gate.Detect(chunkF64, goertzelDetectThreshold) {
			return
		}
	}
	sink.Trace(trace.Event{Kind: trace.EventEndToneMissing})
}

func appendSamples(buf []float64, chunk []float32) []float64 {
	for _, s := range chunk {
		buf = append(buf, float64(s))
	}
	return buf
}

// trimSearchBuffer keeps the tail of buf the coarse detector still needs
// to re-scan, bounding memory use during a long idle listen.
func trimSearchBuffer(buf []float64, symLen int) []float64 {
	maxLen := symLen * maxSearchWindowSymbols
	if len(buf) <= maxLen {
		return buf
	}
	return append([]float64{}, buf[len(buf)-maxLen:]...)
}

func fillTo(source audio.AudioSource, buf *[]float64, n int) error {
	for len(*buf) < n {
		chunk, err := source.ReadSamples(n - len(*buf))
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIOExhausted, err)
		}
		*buf = appendSamples(*buf, chunk)
	}
	return nil
}

func cancelled(c <-chan struct{}) bool {
	if c == nil {
		return false
	}
	select {
	case <-c:
		return true
	default:
		return false
	}
}
