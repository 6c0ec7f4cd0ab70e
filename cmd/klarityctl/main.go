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

// Command klarityctl is a flag-driven CLI exercising the bridge: open a
// location, probe its Format, decode a bounded number of frames, seek,
// and optionally play decoded audio through the default output device.
//
// Grounded on e1z0-QAnotherRTSP/src/main.go's flag.Bool parsing and log
// setup, generalized away from that file's Qt GUI bootstrap — this
// command has no GUI surface, only the decode/playback core.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	astiav "github.com/asticode/go-astiav"

	"github.com/numq/klarity-go/internal/avcore/hwaccel"
	"github.com/numq/klarity-go/internal/avconfig"
	"github.com/numq/klarity-go/internal/avlog"
	"github.com/numq/klarity-go/internal/bridge"
)

func main() {
	location := flag.String("location", "", "media location to open (file path or URL)")
	findAudio := flag.Bool("audio", true, "probe for an audio stream")
	findVideo := flag.Bool("video", true, "probe for a video stream")
	decodeAudio := flag.Bool("decode-audio", true, "actually decode the audio stream")
	decodeVideo := flag.Bool("decode-video", true, "actually decode the video stream")
	hwaccelFlag := flag.Bool("hwaccel", false, "try every hardware acceleration device type this machine advertises, in enumeration order")
	frames := flag.Int("frames", 0, "decode at most this many audio frames and this many video frames (0 = until end of stream)")
	seekMicros := flag.Int64("seek", -1, "seek to this timestamp (microseconds) before decoding, if >= 0")
	keyframesOnly := flag.Bool("keyframes-only", false, "seek to the nearest keyframe without fine-seeking")
	play := flag.Bool("play", false, "play decoded audio through the default output device")
	ffmpegParams := flag.String("ffmpeg-params", "", "space-separated -fOPTION=value / -cOPTION=value overrides for the demuxer/codec open dictionaries")
	configPath := flag.String("config", defaultConfigPath(), "path to the engine config YAML")
	debug := flag.Bool("debug", false, "also copy log output to stdout")
	debugStreams := flag.Bool("debugstreams", false, "log the underlying codec library's own debug output")
	flag.Parse()

	logDir := filepath.Dir(defaultConfigPath())
	if err := avlog.Init(logDir, *debug); err != nil {
		log.Fatalf("avlog.Init: %v", err)
	}

	if *debugStreams {
		astiav.SetLogLevel(astiav.LogLevelDebug)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, _ string, msg string) {
			var cs string
			if c != nil {
				if cl := c.Class(); cl != nil {
					cs = " - class: " + cl.String()
				}
			}
			avlog.Printf("ffmpeg: %s%s - level: %d", strings.TrimSpace(msg), cs, l)
		})
	}

	if *location == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := avconfig.Load(*configPath)
	if err != nil {
		avlog.Warnf("avconfig.Load: %v", err)
	}

	if err := bridge.Init(); err != nil {
		log.Fatalf("bridge.Init: %v", err)
	}
	defer bridge.Shutdown()

	var hwCandidates []hwaccel.DeviceType
	if *hwaccelFlag {
		hwCandidates, err = bridge.ListHwAccelerations()
		if err != nil {
			avlog.Warnf("ListHwAccelerations: %v", err)
		}
	}

	opts := bridge.DecoderOptions{
		FindAudioStream:                *findAudio,
		FindVideoStream:                *findVideo,
		DecodeAudioStream:              *decodeAudio,
		DecodeVideoStream:              *decodeVideo,
		HardwareAccelerationCandidates: hwCandidates,
		ThreadCount:                    cfg.ThreadCount,
		ProbeSize:                      cfg.ProbeSize,
		FFmpegParams:                   *ffmpegParams,
	}

	handle, f, err := bridge.CreateDecoder(*location, opts)
	if err != nil {
		log.Fatalf("CreateDecoder(%s): %v", *location, err)
	}
	defer bridge.DeleteDecoder(handle)

	avlog.Printf("opened %s: %dx%d @ %.2ffps, %dHz/%dch, duration=%dus, hwaccel=%s",
		f.Location, f.Width, f.Height, f.FrameRate, f.SampleRate, f.Channels, f.DurationMicros, f.HWDeviceType)

	if *seekMicros >= 0 {
		if err := bridge.SeekTo(handle, *seekMicros, *keyframesOnly); err != nil {
			log.Fatalf("SeekTo(%d): %v", *seekMicros, err)
		}
	}

	var samplerHandle int64 = -1
	if *play && f.SampleRate > 0 && f.Channels > 0 {
		h, err := bridge.CreateSampler(f.SampleRate, f.Channels)
		if err != nil {
			log.Fatalf("CreateSampler: %v", err)
		}
		samplerHandle = h
		if _, err := bridge.StartSampler(samplerHandle); err != nil {
			log.Fatalf("StartSampler: %v", err)
		}
		defer bridge.DeleteSampler(samplerHandle)
	}

	decodeLoop(handle, samplerHandle, *frames, *decodeVideo, f.VideoBufferCapacity)
}

func decodeLoop(decoderHandle, samplerHandle int64, maxFrames int, decodeVideo bool, videoBufferCapacity int) {
	var videoBuf []byte
	if decodeVideo && videoBufferCapacity > 0 {
		var err error
		videoBuf, err = bridge.Allocate(videoBufferCapacity)
		if err != nil {
			log.Fatalf("Allocate(video buffer): %v", err)
		}
	}

	audioEOF := false
	videoEOF := videoBuf == nil

	count := 0
	for (maxFrames <= 0 || count < maxFrames) && !(audioEOF && videoEOF) {
		if !audioEOF {
			audioFrame, err := bridge.DecodeAudio(decoderHandle)
			if err != nil {
				avlog.Warnf("DecodeAudio: %v", err)
				audioEOF = true
			} else if audioFrame == nil {
				audioEOF = true
			} else {
				avlog.Printf("audio frame: %d bytes @ %dus", len(audioFrame.Data), audioFrame.TimestampMicros)
				if samplerHandle >= 0 {
					if err := bridge.WriteSampler(samplerHandle, audioFrame.Data, 1.0, 1.0); err != nil {
						avlog.Warnf("WriteSampler: %v", err)
					}
				}
			}
		}

		if !videoEOF {
			vf, err := bridge.DecodeVideo(decoderHandle, videoBuf)
			if err != nil {
				avlog.Warnf("DecodeVideo: %v", err)
				videoEOF = true
			} else if vf == nil {
				videoEOF = true
			} else {
				avlog.Printf("video frame: %d bytes @ %dus", vf.Size, vf.TimestampMicros)
			}
		}

		count++
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "klarity-config.yml"
	}
	return filepath.Join(home, ".config", "klarity-go", "settings.yml")
}
