package stream

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/bwmarrin/discordgo"
)

// DCA framing: a little-endian uint16 length followed by one Opus packet.

// DCAEncoder turns PCM into DCA using FFmpeg's libopus.
type DCAEncoder struct {
	cc    *astiav.CodecContext
	frame *astiav.Frame
	pkt   *astiav.Packet
	bw    *bufio.Writer
}

// NewDCAEncoder creates a stereo 48kHz Opus encoder writing DCA to w.
func NewDCAEncoder(w io.Writer) (*DCAEncoder, error) {
	codec := astiav.FindEncoderByName("libopus")
	if codec == nil {
		return nil, errors.New("libopus encoder not found (FFmpeg built without libopus?)")
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("alloc codec context")
	}

	cc.SetSampleRate(sampleRate)
	cc.SetChannelLayout(astiav.ChannelLayoutStereo)
	cc.SetSampleFormat(astiav.SampleFormatS16)
	cc.SetBitRate(128_000)

	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open opus encoder: %w", err)
	}

	frame := astiav.AllocFrame()
	if frame == nil {
		cc.Free()
		return nil, errors.New("alloc frame")
	}
	frame.SetSampleRate(sampleRate)
	frame.SetChannelLayout(astiav.ChannelLayoutStereo)
	frame.SetSampleFormat(astiav.SampleFormatS16)
	frame.SetNbSamples(frameSize)

	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		cc.Free()
		return nil, fmt.Errorf("frame alloc buffer: %w", err)
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		frame.Free()
		cc.Free()
		return nil, errors.New("alloc packet")
	}

	return &DCAEncoder{
		cc:    cc,
		frame: frame,
		pkt:   pkt,
		bw:    bufio.NewWriterSize(w, 64*1024),
	}, nil
}

func (d *DCAEncoder) Close() {
	d.pkt.Free()
	d.frame.Free()
	d.cc.Free()
}

// EncodePCMToDCA reads interleaved s16le stereo 48k PCM from r until EOF.
// A short last frame is padded with silence.
func (d *DCAEncoder) EncodePCMToDCA(r io.Reader) error {
	frameBytes := frameSize * channels * 2
	reader := bufio.NewReaderSize(r, 64*1024)
	pcmBuf := make([]byte, frameBytes)

	for {
		n, err := io.ReadFull(reader, pcmBuf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read pcm: %w", err)
		}
		clear(pcmBuf[n:])

		if err := d.frame.Data().SetBytes(pcmBuf, 0); err != nil {
			return fmt.Errorf("frame set bytes: %w", err)
		}
		if err := d.cc.SendFrame(d.frame); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}
		if err := d.receive(); err != nil {
			return err
		}
		if n < frameBytes {
			break
		}
	}

	if err := d.cc.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("flush encoder: %w", err)
	}
	if err := d.receive(); err != nil {
		return err
	}
	return d.bw.Flush()
}

func (d *DCAEncoder) receive() error {
	for {
		d.pkt.Unref()
		if err := d.cc.ReceivePacket(d.pkt); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receive packet: %w", err)
		}
		if err := WriteDCAFrame(d.bw, d.pkt.Data()); err != nil {
			return err
		}
	}
}

func WriteDCAFrame(w io.Writer, packet []byte) error {
	if len(packet) > 0xFFFF {
		return fmt.Errorf("opus packet too large: %d", len(packet))
	}
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(len(packet)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write dca len: %w", err)
	}
	if _, err := w.Write(packet); err != nil {
		return fmt.Errorf("write dca packet: %w", err)
	}
	return nil
}

// ReadDCAFrame returns the next packet. io.EOF marks a clean end.
func ReadDCAFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	pkt := make([]byte, int(binary.LittleEndian.Uint16(hdr[:])))
	if _, err := io.ReadFull(r, pkt); err != nil {
		return nil, fmt.Errorf("read dca packet: %w", err)
	}
	return pkt, nil
}

// FrameInterval paces Opus packets.
const FrameInterval = 20 * time.Millisecond

// SendDCAPackets copies DCA packets from r to out, one per FrameInterval,
// until r ends or ctx is done.
func SendDCAPackets(ctx context.Context, out chan<- []byte, r io.Reader) error {
	br := bufio.NewReaderSize(r, 32*1024)
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		pkt, err := ReadDCAFrame(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if len(pkt) == 0 {
			continue
		}

		select {
		case out <- pkt:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return errors.New("opus send timeout")
		}
	}
}

// PlayDCA waits for vc to be ready and streams r to it.
func PlayDCA(ctx context.Context, vc *discordgo.VoiceConnection, r io.Reader) error {
	deadline := time.Now().Add(5 * time.Second)
	for !voiceReady(vc) {
		if time.Now().After(deadline) {
			return errors.New("voice connection not ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	_ = vc.Speaking(true)
	defer vc.Speaking(false)

	return SendDCAPackets(ctx, vc.OpusSend, r)
}

func voiceReady(vc *discordgo.VoiceConnection) bool {
	if vc == nil {
		return false
	}
	vc.RLock()
	defer vc.RUnlock()
	return vc.Ready && vc.OpusSend != nil
}

// Transcode decodes path and writes it to w as DCA.
func Transcode(ctx context.Context, path string, w io.Writer) error {
	pcm, err := StartPCMStream(ctx, path)
	if err != nil {
		return err
	}
	defer pcm.Close()

	enc, err := NewDCAEncoder(w)
	if err != nil {
		return err
	}
	defer enc.Close()

	if err := enc.EncodePCMToDCA(pcm.Stdout()); err != nil {
		if derr := pcm.Err(); derr != nil {
			return fmt.Errorf("decode %s: %w", path, derr)
		}
		return err
	}
	return nil
}
