// Command soniclink sends and receives byte payloads over the acoustic
// OFDM link implemented by internal/codec. It has no network server: it
// is a one-shot send/listen/keygen CLI around a speaker and a microphone.
package main

import (
	"crypto/rsa"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/sonic-link/soniclink/internal/audio"
	"github.com/sonic-link/soniclink/internal/codec"
	"github.com/sonic-link/soniclink/internal/config"
	"github.com/sonic-link/soniclink/internal/errs"
	"github.com/sonic-link/soniclink/internal/keys"
	"github.com/sonic-link/soniclink/internal/trace"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "send":
		err = runSend(os.Args[2:])
	case "listen":
		err = runListen(os.Args[2:])
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "devices":
		err = runDevices()
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "soniclink: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "soniclink: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: soniclink <command> [flags]

commands:
  send     modulate a payload to the speaker
  listen   demodulate one frame from the microphone
  keygen   generate an RSA keypair for encrypted frames
  devices  list audio devices and exit`)
}

func runDevices() error {
	if err := audio.Init(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer audio.Terminate()
	return audio.PrintDevices()
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	configFile := fs.String("config", "", "path to a soniclink.yaml config file")
	input := fs.String("input", "", "file to send (default: stdin)")
	pubKeyPath := fs.String("pub", "", "recipient's public key PEM (required if encrypt: true)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	payload, err := readPayload(*input)
	if err != nil {
		return err
	}

	pubKey, err := loadPublicIfNeeded(cfg, *pubKeyPath)
	if err != nil {
		return err
	}

	waveform, err := codec.EncodeFrame(payload, cfg, pubKey)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	if err := audio.Init(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer audio.Terminate()

	sink, err := audio.NewPortAudioSink(float64(cfg.SampleRate), 1024)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer sink.Close()

	if err := sink.WriteSamples(waveform); err != nil {
		return fmt.Errorf("writing waveform: %w", err)
	}
	fmt.Fprintf(os.Stderr, "soniclink: sent %d bytes (%d samples)\n", len(payload), len(waveform))
	return nil
}

func runListen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	configFile := fs.String("config", "", "path to a soniclink.yaml config file")
	output := fs.String("output", "", "file to write the decoded payload to (default: stdout)")
	privKeyPath := fs.String("priv", "", "private key PEM for decrypting encrypted frames")
	verbose := fs.Bool("verbose", false, "log codec progress events to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	privKey, err := loadPrivateIfProvided(*privKeyPath)
	if err != nil {
		return err
	}

	if err := audio.Init(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer audio.Terminate()

	chunkSize := cfg.FFTSize
	source, err := audio.NewPortAudioSource(float64(cfg.SampleRate), chunkSize)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	defer source.Close()

	var sink trace.Sink = trace.NopSink{}
	if *verbose {
		sink = trace.NewLogSink(nil)
	}

	cancel := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(cancel)
	}()

	payload, err := codec.DecodeStream(source, cfg, privKey, sink, cancel)
	if err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}

	return writePayload(*output, payload)
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	privOut := fs.String("priv-out", "soniclink.key", "path to write the private key PEM")
	pubOut := fs.String("pub-out", "soniclink.pub", "path to write the public key PEM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	priv, err := keys.Generate()
	if err != nil {
		return err
	}
	if err := keys.WritePrivate(*privOut, priv); err != nil {
		return err
	}
	if err := keys.WritePublic(*pubOut, &priv.PublicKey); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "soniclink: wrote %s and %s\n", *privOut, *pubOut)
	return nil
}

func readPayload(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writePayload(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadPublicIfNeeded(cfg *config.Config, path string) (*rsa.PublicKey, error) {
	if !cfg.Encrypt {
		return nil, nil
	}
	if path == "" {
		return nil, fmt.Errorf("%w: encrypt: true requires --pub", errs.ErrInvalidConfig)
	}
	return keys.LoadPublic(path)
}

func loadPrivateIfProvided(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return nil, nil
	}
	return keys.LoadPrivate(path)
}
