/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * klarity-go
 * Copyright (C) 2026 numq
 *
 * This file is part of klarity-go.
 *
 * klarity-go is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * klarity-go is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with klarity-go.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package decoder implements the Decoder contract of spec.md §4.2-§4.3: a
// single-location demuxer/decoder pair that serves decoded audio and video
// frames one at a time, seeks, and resets, with software fallback and
// optional hardware acceleration.
//
// Grounded on _examples/e1z0-QAnotherRTSP/src/video.go's openAndDecode /
// bgraScaler (stream walking, codec-context setup, BGRA conversion via
// astiav.SoftwareScaleContext) and on
// original_source/library/src/main/cpp/src/decoder/decoder.cpp for the
// exact construction order, duration-safety check, and seek/reset
// semantics the Go rewrite must preserve.
package decoder

import (
	"errors"
	"fmt"
	"sync"

	astiav "github.com/asticode/go-astiav"

	"github.com/numq/klarity-go/internal/avcore/format"
	"github.com/numq/klarity-go/internal/avcore/hwaccel"
	"github.com/numq/klarity-go/internal/avlog"
)

// targetSampleFormat and targetPixelFormat are fixed output formats, per
// decoder.h: interleaved 32-bit float audio, packed BGRA video.
const (
	targetSampleFormat = astiav.SampleFormatFlt
	targetPixelFormat  = astiav.PixelFormatBgra
)

const defaultThreadCount = 2

var (
	ErrUninitialized      = errors.New("decoder: uninitialized")
	ErrNoAudioStream      = errors.New("decoder: no audio stream")
	ErrNoVideoStream      = errors.New("decoder: no video stream")
	ErrInvalidBuffer      = errors.New("decoder: invalid buffer")
	ErrTimestampOOB       = errors.New("decoder: timestamp out of bounds")
	ErrNoSeekableStream   = errors.New("decoder: no streams to seek")
	ErrAlreadyClosed      = errors.New("decoder: already closed")
)

// HardwareAccelerationError marks a failure specific to hardware-accelerated
// decoding — device context acquisition or the transfer from device to
// system memory — distinct from a generic decode failure, per spec.md §7's
// kind 2. internal/bridge detects it with errors.As to pick the matching
// foreign error kind instead of the generic decoder kind.
type HardwareAccelerationError struct{ err error }

func (e *HardwareAccelerationError) Error() string { return fmt.Sprintf("decoder: %v", e.err) }
func (e *HardwareAccelerationError) Unwrap() error  { return e.err }

func newHardwareAccelerationError(err error) error {
	if err == nil {
		return nil
	}
	return &HardwareAccelerationError{err: err}
}

// AudioFrame is one decoded, resampled chunk of interleaved float32 audio.
type AudioFrame struct {
	Data            []byte
	TimestampMicros int64
}

// VideoFrame describes the BGRA bytes decodeVideo wrote into the caller's
// buffer.
type VideoFrame struct {
	Size            int
	TimestampMicros int64
}

// Options controls which streams a Decoder opens and whether the
// resampler/scaler and frames needed to decode them are set up (vs. the
// stream only contributing to Format). The codec of every found stream is
// opened either way.
type Options struct {
	FindAudioStream               bool
	FindVideoStream                bool
	DecodeAudioStream              bool
	DecodeVideoStream              bool
	HardwareAccelerationCandidates []hwaccel.DeviceType
	ThreadCount                    int

	// ProbeSize overrides FFmpeg's stream-probing byte budget. 0 uses the
	// teacher's own default (5,000,000 bytes).
	ProbeSize int64

	// FFmpegParams is a space-separated list of "-fOPTION=value" (demuxer)
	// and "-cOPTION=value" (codec) overrides, applied on top of the
	// low-latency network defaults, per e1z0-QAnotherRTSP's per-camera
	// FFmpegParams field.
	FFmpegParams string
}

// Decoder owns exactly one demuxer and up to one audio and one video codec
// context. Every method takes the same exclusive lock, matching the original's
// std::shared_mutex discipline of serializing every call against every
// other call on the same instance.
type Decoder struct {
	mu sync.Mutex

	hwRegistry *hwaccel.Registry

	formatCtx *astiav.FormatContext

	audioStream *astiav.Stream
	videoStream *astiav.Stream

	audioDecoder *astiav.Codec
	videoDecoder *astiav.Codec

	audioCodecCtx *astiav.CodecContext
	videoCodecCtx *astiav.CodecContext

	swrCtx *astiav.SoftwareResampleContext
	swsCtx *astiav.SoftwareScaleContext

	swsWidth, swsHeight int
	swsPixFmt           astiav.PixelFormat

	packet      *astiav.Packet
	audioFrame  *astiav.Frame
	audioOut    *astiav.Frame
	swVideoFrame *astiav.Frame
	hwVideoFrame *astiav.Frame

	hwRef *hwaccel.Ref

	format format.Format

	closed bool
}

// New opens location and walks its streams per opts, mirroring
// Decoder::Decoder in the original. On any failure everything already
// allocated is released before the error is returned.
func New(hwRegistry *hwaccel.Registry, location string, opts Options) (d *Decoder, err error) {
	threadCount := opts.ThreadCount
	if threadCount <= 0 {
		threadCount = defaultThreadCount
	}

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("decoder: AllocFormatContext failed")
	}

	d = &Decoder{
		hwRegistry: hwRegistry,
		formatCtx:  fc,
	}
	owned := d
	defer func() {
		if err != nil {
			owned.closeLocked()
			d = nil
		}
	}()

	formatOpts := baseFormatOptions(opts.ProbeSize, opts.FFmpegParams)
	defer formatOpts.Free()
	avlog.Printf("decoder: opening %s with options: %s", location, joinDict(formatOpts))

	if err = fc.OpenInput(location, nil, formatOpts); err != nil {
		return nil, fmt.Errorf("decoder: OpenInput(%s): %w", location, err)
	}
	if err = fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("decoder: FindStreamInfo: %w", err)
	}

	duration := fc.Duration()
	if duration < 0 {
		duration = 0
	}
	d.format = format.Format{
		Location:       location,
		DurationMicros: duration,
	}

	for _, stream := range fc.Streams() {
		params := stream.CodecParameters()

		switch params.MediaType() {
		case astiav.MediaTypeAudio:
			if !opts.FindAudioStream || d.audioStream != nil {
				continue
			}
			dec := astiav.FindDecoder(params.CodecID())
			if dec == nil {
				continue
			}
			d.audioStream = stream
			d.audioDecoder = dec

			ctx := astiav.AllocCodecContext(dec)
			if ctx == nil {
				return nil, errors.New("decoder: AllocCodecContext(audio) failed")
			}
			d.audioCodecCtx = ctx

			if err = params.ToCodecContext(ctx); err != nil {
				return nil, fmt.Errorf("decoder: ToCodecContext(audio): %w", err)
			}

			ctx.SetThreadCount(threadCount)
			ctx.SetFlags(ctx.Flags() | astiav.CodecContextFlagLowDelay)

			audioCodecOpts := codecOptions(opts.FFmpegParams)
			openErr := ctx.Open(dec, audioCodecOpts)
			audioCodecOpts.Free()
			if err = openErr; err != nil {
				return nil, fmt.Errorf("decoder: open audio codec: %w", err)
			}

			d.format.DurationMicros = maxI64(d.format.DurationMicros, rescale(stream.Duration(), stream.TimeBase(), microTimeBase))
			d.format.SampleRate = ctx.SampleRate()
			d.format.Channels = ctx.ChannelLayout().Channels()

			if opts.DecodeAudioStream {
				swr := astiav.AllocSoftwareResampleContext()
				if swr == nil {
					return nil, errors.New("decoder: AllocSoftwareResampleContext failed")
				}
				d.swrCtx = swr

				d.audioFrame = astiav.AllocFrame()
				if d.audioFrame == nil {
					return nil, errors.New("decoder: AllocFrame(audio) failed")
				}

				out := astiav.AllocFrame()
				if out == nil {
					return nil, errors.New("decoder: AllocFrame(audio out) failed")
				}
				out.SetSampleFormat(targetSampleFormat)
				out.SetChannelLayout(ctx.ChannelLayout())
				out.SetSampleRate(ctx.SampleRate())
				d.audioOut = out
			}

		case astiav.MediaTypeVideo:
			if !opts.FindVideoStream || d.videoStream != nil {
				continue
			}
			dec := astiav.FindDecoder(params.CodecID())
			if dec == nil {
				continue
			}
			d.videoStream = stream
			d.videoDecoder = dec

			ctx := astiav.AllocCodecContext(dec)
			if ctx == nil {
				return nil, errors.New("decoder: AllocCodecContext(video) failed")
			}
			d.videoCodecCtx = ctx

			if err = params.ToCodecContext(ctx); err != nil {
				return nil, fmt.Errorf("decoder: ToCodecContext(video): %w", err)
			}

			if opts.DecodeVideoStream && len(opts.HardwareAccelerationCandidates) > 0 {
				d.prepareHardwareAcceleration(opts.HardwareAccelerationCandidates)
			}

			ctx.SetThreadCount(threadCount)

			rate := stream.AvgFrameRate()
			if rate.Num() != 0 && rate.Den() != 0 {
				d.format.FrameRate = float64(rate.Num()) / float64(rate.Den())
			}

			d.format.DurationMicros = maxI64(d.format.DurationMicros, rescale(stream.Duration(), stream.TimeBase(), microTimeBase))

			if d.format.FrameRate > 0 {
				frameIntervalMicros := 1_000_000.0 / d.format.FrameRate
				if float64(d.format.DurationMicros) <= frameIntervalMicros {
					d.format.FrameRate = 0
					d.format.DurationMicros = 0
				}
			}

			ctx.SetFlags(ctx.Flags() | astiav.CodecContextFlagLowDelay)

			videoCodecOpts := codecOptions(opts.FFmpegParams)
			openErr := ctx.Open(dec, videoCodecOpts)
			avlog.Printf("decoder: video codec options: %s", joinDict(videoCodecOpts))
			videoCodecOpts.Free()
			if err = openErr; err != nil {
				return nil, fmt.Errorf("decoder: open video codec: %w", err)
			}

			d.format.Width = ctx.Width()
			d.format.Height = ctx.Height()
			d.format.HWDeviceType = hwaccel.None
			if d.hwRef != nil {
				d.format.HWDeviceType = d.hwRef.Type
			}

			bufSize, bErr := astiav.ImageGetBufferSize(targetPixelFormat, ctx.Width(), ctx.Height(), 1)
			if bErr != nil || bufSize <= 0 {
				return nil, fmt.Errorf("decoder: ImageGetBufferSize: %w", bErr)
			}
			d.format.VideoBufferCapacity = bufSize + astiav.InputBufferPaddingSize

			if opts.DecodeVideoStream {
				ssc, sErr := astiav.CreateSoftwareScaleContext(
					ctx.Width(), ctx.Height(), ctx.PixelFormat(),
					ctx.Width(), ctx.Height(), targetPixelFormat,
					astiav.NewSoftwareScaleContextFlags(),
				)
				if sErr != nil || ssc == nil {
					return nil, fmt.Errorf("decoder: CreateSoftwareScaleContext: %w", sErr)
				}
				d.swsCtx = ssc
				d.swsWidth, d.swsHeight, d.swsPixFmt = ctx.Width(), ctx.Height(), ctx.PixelFormat()

				d.swVideoFrame = astiav.AllocFrame()
				if d.swVideoFrame == nil {
					return nil, errors.New("decoder: AllocFrame(sw video) failed")
				}
			}
		default:
			continue
		}
	}

	if d.audioStream == nil && d.videoStream == nil {
		return nil, errors.New("decoder: no audio or video stream found")
	}

	d.packet = astiav.AllocPacket()
	if d.packet == nil {
		return nil, errors.New("decoder: AllocPacket failed")
	}

	return d, nil
}

var microTimeBase = astiav.NewRational(1, 1_000_000)

func rescale(ts int64, from, to astiav.Rational) int64 {
	if from.Num() == 0 || from.Den() == 0 || to.Num() == 0 || to.Den() == 0 {
		return 0
	}
	num := float64(ts) * float64(from.Num()) * float64(to.Den())
	den := float64(from.Den()) * float64(to.Num())
	return int64(num / den)
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// bestEffortPts returns f's best_effort_timestamp when the library managed
// to compute one, falling back to its raw pts otherwise, per decoder.cpp's
// repeated "best_effort_timestamp != AV_NOPTS_VALUE ? best_effort_timestamp
// : pts" pattern.
func bestEffortPts(f *astiav.Frame) int64 {
	if be := f.BestEffortTimestamp(); be != astiav.NoPtsValue {
		return be
	}
	return f.Pts()
}

// prepareHardwareAcceleration tries each candidate in order, stopping at the
// first the video decoder actually supports, per
// Decoder::_prepareHardwareAcceleration. A candidate the registry can't
// acquire a device context for, or that the decoder advertises no hardware
// config for, is skipped in favor of the next one; if every candidate is
// exhausted this falls back to software decoding, per Open Question 2's
// decision that hardware negotiation never fails construction outright.
func (d *Decoder) prepareHardwareAcceleration(candidates []hwaccel.DeviceType) {
	for _, candidate := range candidates {
		ref, err := d.hwRegistry.Request(candidate)
		if err != nil {
			avlog.Warnf("decoder: %v", newHardwareAccelerationError(fmt.Errorf("acquire device context for %s: %w", candidate, err)))
			continue
		}
		if ref == nil {
			continue
		}

		pixFmt, ok := matchingHardwareConfig(d.videoDecoder, candidate)
		if !ok {
			avlog.Warnf("decoder: %v", newHardwareAccelerationError(fmt.Errorf("%s: decoder advertises no matching hardware config", candidate)))
			d.hwRegistry.Release(ref)
			continue
		}

		d.videoCodecCtx.SetHardwareDeviceContext(ref.Context())
		d.videoCodecCtx.SetPixelFormatCallback(func(_ *astiav.CodecContext, pixelFormats []astiav.PixelFormat) astiav.PixelFormat {
			for _, pf := range pixelFormats {
				if pf == pixFmt {
					return pf
				}
			}
			return astiav.PixelFormatNone
		})

		d.hwVideoFrame = astiav.AllocFrame()
		d.hwRef = ref
		return
	}

	avlog.Warnf("decoder: no candidate hardware acceleration available, falling back to software decoding")
}

// matchingHardwareConfig scans dec's advertised hardware configurations for
// one that accepts a pre-created device context (as opposed to one dec only
// supports via an internally-managed frames context) whose device type is
// candidate, returning the specific pixel format that config advertises.
// candidate's underlying value is defined to match astiav's own
// HardwareDeviceType enum (per hwaccel.DeviceType's doc comment), so the
// direct conversion below is exact, not a guess, per
// Decoder::_getHardwareAccelerationFormat's avcodec_get_hw_config walk
// (decoder.cpp), which this mirrors instead of numerically comparing a
// device-type tag against a pixel-format tag.
func matchingHardwareConfig(dec *astiav.Codec, candidate hwaccel.DeviceType) (astiav.PixelFormat, bool) {
	want := astiav.HardwareDeviceType(candidate)
	for _, cfg := range dec.HardwareConfigs() {
		if cfg.MethodFlags()&astiav.CodecHardwareConfigMethodFlagHwDeviceContext == 0 {
			continue
		}
		if cfg.DeviceType() != want {
			continue
		}
		return cfg.PixelFormat(), true
	}
	return astiav.PixelFormatNone, false
}

func (d *Decoder) isValid() bool {
	return d.formatCtx != nil && (d.audioStream != nil || d.videoStream != nil)
}

func (d *Decoder) hasAudio() bool {
	return d.audioStream != nil && d.audioCodecCtx != nil && d.audioDecoder != nil && d.audioFrame != nil
}

func (d *Decoder) hasVideo() bool {
	return d.videoStream != nil && d.videoCodecCtx != nil && d.videoDecoder != nil && d.swVideoFrame != nil
}

func (d *Decoder) isHardwareAccelerated() bool {
	return d.videoCodecCtx != nil && d.hwRef != nil && d.hwVideoFrame != nil
}

// Format returns the immutable descriptor produced at construction.
func (d *Decoder) Format() format.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// DecodeAudio reads and decodes packets until one audio frame is produced,
// resampled to interleaved float32, or the stream ends (nil, nil).
func (d *Decoder) DecodeAudio() (*AudioFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isValid() {
		return nil, ErrUninitialized
	}
	if !d.hasAudio() {
		return nil, ErrNoAudioStream
	}

	d.packet.Unref()

	for {
		if err := d.formatCtx.ReadFrame(d.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return nil, nil
			}
			return nil, fmt.Errorf("decoder: ReadFrame: %w", err)
		}

		if d.packet.StreamIndex() != d.audioStream.Index() {
			d.packet.Unref()
			continue
		}

		sendErr := d.audioCodecCtx.SendPacket(d.packet)
		d.packet.Unref()
		if sendErr != nil {
			continue
		}

		frame, err := d.receiveAudioFrame()
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}
	}
}

func (d *Decoder) receiveAudioFrame() (*AudioFrame, error) {
	for {
		err := d.audioCodecCtx.ReceiveFrame(d.audioFrame)
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoder: ReceiveFrame(audio): %w", err)
		}

		ts := bestEffortPts(d.audioFrame)
		timestampMicros := rescale(ts, d.audioStream.TimeBase(), microTimeBase)

		data, err := d.processAudio()
		d.audioFrame.Unref()
		if err != nil {
			return nil, err
		}

		return &AudioFrame{Data: data, TimestampMicros: timestampMicros}, nil
	}
}

func (d *Decoder) processAudio() ([]byte, error) {
	d.audioOut.Unref()
	d.audioOut.SetSampleFormat(targetSampleFormat)
	d.audioOut.SetChannelLayout(d.audioCodecCtx.ChannelLayout())
	d.audioOut.SetSampleRate(d.audioCodecCtx.SampleRate())

	if err := d.swrCtx.ConvertFrame(d.audioFrame, d.audioOut); err != nil {
		return nil, fmt.Errorf("decoder: ConvertFrame(audio): %w", err)
	}

	buf := audioScratch(d.audioOut)
	n, err := d.audioOut.SamplesCopyToBuffer(buf, 1)
	if err != nil {
		return nil, fmt.Errorf("decoder: SamplesCopyToBuffer: %w", err)
	}
	return buf[:n], nil
}

// audioScratch sizes a fresh buffer for the interleaved float32 samples in
// out, returning the buffer for SamplesCopyToBuffer to fill; the copy
// count it reports is taken as the final slice length by the caller.
func audioScratch(out *astiav.Frame) []byte {
	const bytesPerSample = 4 // float32
	n := out.NbSamples() * out.ChannelLayout().Channels() * bytesPerSample
	if n <= 0 {
		return nil
	}
	return make([]byte, n)
}

// DecodeVideo reads and decodes packets until one video frame is produced
// and converted to BGRA into buffer, or the stream ends (nil, nil).
func (d *Decoder) DecodeVideo(buffer []byte) (*VideoFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isValid() {
		return nil, ErrUninitialized
	}
	if !d.hasVideo() {
		return nil, ErrNoVideoStream
	}
	if len(buffer) == 0 {
		return nil, ErrInvalidBuffer
	}

	d.packet.Unref()

	for {
		if err := d.formatCtx.ReadFrame(d.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return nil, nil
			}
			return nil, fmt.Errorf("decoder: ReadFrame: %w", err)
		}

		if d.packet.StreamIndex() != d.videoStream.Index() {
			d.packet.Unref()
			continue
		}

		sendErr := d.videoCodecCtx.SendPacket(d.packet)
		d.packet.Unref()
		if sendErr != nil {
			continue
		}

		frame, err := d.receiveVideoFrame(buffer)
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}
	}
}

func (d *Decoder) receiveVideoFrame(buffer []byte) (*VideoFrame, error) {
	target := d.swVideoFrame
	if d.isHardwareAccelerated() {
		target = d.hwVideoFrame
	}

	for {
		err := d.videoCodecCtx.ReceiveFrame(target)
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoder: ReceiveFrame(video): %w", err)
		}

		if d.isHardwareAccelerated() {
			if err := d.hwVideoFrame.TransferHardwareData(d.swVideoFrame); err != nil {
				return nil, newHardwareAccelerationError(fmt.Errorf("transfer hw frame to system memory: %w", err))
			}
			d.swVideoFrame.SetBestEffortTimestamp(d.hwVideoFrame.BestEffortTimestamp())
			d.swVideoFrame.SetPts(d.hwVideoFrame.Pts())
			d.hwVideoFrame.Unref()
		}

		ts := bestEffortPts(d.swVideoFrame)
		timestampMicros := rescale(ts, d.videoStream.TimeBase(), microTimeBase)

		size, err := d.processVideo(buffer)
		d.swVideoFrame.Unref()
		if err != nil {
			return nil, err
		}

		return &VideoFrame{Size: size, TimestampMicros: timestampMicros}, nil
	}
}

func (d *Decoder) processVideo(buffer []byte) (int, error) {
	src := d.swVideoFrame

	if src.Width() != d.swsWidth || src.Height() != d.swsHeight || src.PixelFormat() != d.swsPixFmt {
		if d.swsCtx != nil {
			d.swsCtx.Free()
		}
		ssc, err := astiav.CreateSoftwareScaleContext(
			src.Width(), src.Height(), src.PixelFormat(),
			d.videoCodecCtx.Width(), d.videoCodecCtx.Height(), targetPixelFormat,
			astiav.NewSoftwareScaleContextFlags(),
		)
		if err != nil || ssc == nil {
			return 0, fmt.Errorf("decoder: recreate scale context: %w", err)
		}
		d.swsCtx = ssc
		d.swsWidth, d.swsHeight, d.swsPixFmt = src.Width(), src.Height(), src.PixelFormat()
	}

	dst := astiav.AllocFrame()
	defer dst.Free()
	dst.SetWidth(d.videoCodecCtx.Width())
	dst.SetHeight(d.videoCodecCtx.Height())
	dst.SetPixelFormat(targetPixelFormat)

	if err := d.swsCtx.ScaleFrame(src, dst); err != nil {
		return 0, fmt.Errorf("decoder: ScaleFrame: %w", err)
	}

	n, err := dst.ImageCopyToBuffer(buffer, 1)
	if err != nil {
		return 0, fmt.Errorf("decoder: ImageCopyToBuffer: %w", err)
	}
	return n, nil
}

// SeekTo seeks the demuxer backward to the nearest keyframe at or before
// timestampMicros, flushes both codecs, then — unless keyframesOnly is
// set — advances past the discarded packets by decoding forward until a
// frame lands within the fine-seek threshold of the target, mirroring
// Decoder::seekTo.
func (d *Decoder) SeekTo(timestampMicros int64, keyframesOnly bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isValid() {
		return ErrUninitialized
	}
	if timestampMicros < 0 || timestampMicros > d.format.DurationMicros {
		return ErrTimestampOOB
	}

	var seekStream *astiav.Stream
	var codecCtx *astiav.CodecContext

	switch {
	case d.videoStream != nil && d.videoCodecCtx != nil:
		seekStream, codecCtx = d.videoStream, d.videoCodecCtx
	case d.audioStream != nil && d.audioCodecCtx != nil:
		seekStream, codecCtx = d.audioStream, d.audioCodecCtx
	default:
		return ErrNoSeekableStream
	}

	targetPts := rescale(timestampMicros, microTimeBase, seekStream.TimeBase())

	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := d.formatCtx.SeekFrame(seekStream.Index(), targetPts, flags); err != nil {
		if err := d.formatCtx.SeekFrame(-1, timestampMicros, flags); err != nil {
			return fmt.Errorf("decoder: seek: %w", err)
		}
	}

	d.flushState()

	if keyframesOnly {
		return nil
	}

	return d.fineSeek(seekStream, codecCtx, targetPts)
}

func (d *Decoder) flushState() {
	if d.videoCodecCtx != nil {
		d.videoCodecCtx.FlushBuffers()
	}
	if d.audioCodecCtx != nil {
		d.audioCodecCtx.FlushBuffers()
	}
	if d.packet != nil {
		d.packet.Unref()
	}
	if d.audioFrame != nil {
		d.audioFrame.Unref()
	}
	if d.swVideoFrame != nil {
		d.swVideoFrame.Unref()
	}
	if d.hwVideoFrame != nil {
		d.hwVideoFrame.Unref()
	}
}

// fineSeek advances past whatever extra packets the backward keyframe seek
// landed on, stopping once a decoded frame's pts is within the
// video/audio threshold of targetPts, or MAX_ITERATIONS packets have been
// read without reaching it, per the original's fine-seek loop.
func (d *Decoder) fineSeek(seekStream *astiav.Stream, codecCtx *astiav.CodecContext, targetPts int64) error {
	thresholdMicros := int64(50_000)
	if d.videoStream != nil {
		thresholdMicros = 20_000
	}
	thresholdPts := rescale(thresholdMicros, microTimeBase, seekStream.TimeBase())

	fileDurationMs := d.format.DurationMicros / 1000
	frameDurationMs := int64(16)
	if d.videoStream != nil && seekStream.Index() == d.videoStream.Index() {
		rate := d.videoStream.AvgFrameRate()
		if rate.Num() > 0 && rate.Den() > 0 {
			frameRate := float64(rate.Num()) / float64(rate.Den())
			if frameRate > 0 {
				frameDurationMs = int64(1000.0 / frameRate)
			}
		} else {
			frameDurationMs = 16
		}
	}
	maxIterations := (fileDurationMs/frameDurationMs)*2 + 1000
	if maxIterations < 1000 {
		maxIterations = 1000
	}

	tempPacket := astiav.AllocPacket()
	defer tempPacket.Free()
	tempFrame := astiav.AllocFrame()
	defer tempFrame.Free()

	notsPts := int64(astiav.NoPtsValue)
	lastPts := notsPts

	var iterations int64
	for {
		if err := d.formatCtx.ReadFrame(tempPacket); err != nil {
			return nil
		}
		iterations++
		if iterations > maxIterations {
			tempPacket.Unref()
			return nil
		}

		if tempPacket.StreamIndex() != seekStream.Index() {
			tempPacket.Unref()
			continue
		}

		pts := tempPacket.Pts()
		if pts != notsPts {
			if lastPts != notsPts && pts <= lastPts {
				tempPacket.Unref()
				return nil
			}
			lastPts = pts
		}

		sendErr := codecCtx.SendPacket(tempPacket)
		tempPacket.Unref()
		if sendErr != nil {
			continue
		}

		for {
			err := codecCtx.ReceiveFrame(tempFrame)
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				break
			}
			if err != nil {
				return fmt.Errorf("decoder: fine seek ReceiveFrame: %w", err)
			}

			framePts := bestEffortPts(tempFrame)
			tempFrame.Unref()

			if framePts >= targetPts-thresholdPts {
				return nil
			}
		}
	}
}

// Reset seeks back to the start of the demuxer and flushes both codecs,
// discarding any buffered decode state, per Decoder::reset.
func (d *Decoder) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isValid() {
		return ErrUninitialized
	}

	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := d.formatCtx.SeekFrame(-1, 0, flags); err != nil {
		return fmt.Errorf("decoder: reset seek: %w", err)
	}

	d.flushState()
	return nil
}

// Close releases every resource the Decoder holds, in the release order
// Decoder::~Decoder uses: hw frame, sw video frame, audio frame, packet,
// scaler, resampler, codec contexts, demuxer, then the shared hardware
// device reference.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrAlreadyClosed
	}
	d.closeLocked()
	d.closed = true
	return nil
}

func (d *Decoder) closeLocked() {
	if d.hwVideoFrame != nil {
		d.hwVideoFrame.Free()
		d.hwVideoFrame = nil
	}
	if d.swVideoFrame != nil {
		d.swVideoFrame.Free()
		d.swVideoFrame = nil
	}
	if d.audioOut != nil {
		d.audioOut.Free()
		d.audioOut = nil
	}
	if d.audioFrame != nil {
		d.audioFrame.Free()
		d.audioFrame = nil
	}
	if d.packet != nil {
		d.packet.Free()
		d.packet = nil
	}
	if d.swsCtx != nil {
		d.swsCtx.Free()
		d.swsCtx = nil
	}
	if d.swrCtx != nil {
		d.swrCtx.Free()
		d.swrCtx = nil
	}
	if d.videoCodecCtx != nil {
		d.videoCodecCtx.Free()
		d.videoCodecCtx = nil
	}
	if d.audioCodecCtx != nil {
		d.audioCodecCtx.Free()
		d.audioCodecCtx = nil
	}
	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
	if d.hwRef != nil {
		d.hwRegistry.Release(d.hwRef)
		d.hwRef = nil
	}
}
