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

package decoder

import (
	"fmt"
	"sort"
	"strings"

	astiav "github.com/asticode/go-astiav"
)

// parseFFmpegParams splits a raw options string into format-level and
// codec-level token maps: "-fOPTION=value" feeds the demuxer's open
// dictionary, "-cOPTION=value" feeds the codec's open dictionary.
// Grounded on e1z0-QAnotherRTSP/src/helpers.go's parseFFmpegParams.
func parseFFmpegParams(s string) (fopts, copts map[string]string) {
	fopts = make(map[string]string)
	copts = make(map[string]string)

	for _, tok := range strings.Fields(s) {
		if len(tok) < 3 || tok[0] != '-' {
			continue
		}
		prefix := tok[1]
		rest := tok[2:]
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || eq == len(rest)-1 {
			continue
		}
		key := rest[:eq]
		val := rest[eq+1:]

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') ||
				(val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		switch prefix {
		case 'f':
			fopts[key] = val
		case 'c':
			copts[key] = val
		}
	}
	return
}

// baseFormatOptions builds the demuxer-open dictionary: low-latency
// network defaults plus any caller-supplied -fOPTION=value overrides,
// mirroring openAndDecode's rd dictionary setup.
func baseFormatOptions(probeSize int64, extraParams string) *astiav.Dictionary {
	rd := astiav.NewDictionary()
	_ = rd.Set("rtsp_transport", "tcp", 0)
	_ = rd.Set("rtsp_flags", "prefer_tcp", 0)
	_ = rd.Set("buffer_size", "1048576", 0)
	_ = rd.Set("fflags", "+nobuffer+discardcorrupt+genpts", 0)
	_ = rd.Set("max_delay", "500000", 0)
	_ = rd.Set("use_wallclock_as_timestamps", "1", 0)
	_ = rd.Set("reorder_queue_size", "0", 0)
	_ = rd.Set("stimeout", "5000000", 0)

	if probeSize > 0 {
		_ = rd.Set("probesize", fmt.Sprintf("%d", probeSize), 0)
	} else {
		_ = rd.Set("probesize", "5000000", 0)
	}

	fopts, _ := parseFFmpegParams(extraParams)
	for k, v := range fopts {
		_ = rd.Set(k, v, 0)
	}

	return rd
}

// codecOptions builds a codec-open dictionary from any caller-supplied
// -cOPTION=value overrides, mirroring vopts in openAndDecode.
func codecOptions(extraParams string) *astiav.Dictionary {
	opts := astiav.NewDictionary()
	_, copts := parseFFmpegParams(extraParams)
	for k, v := range copts {
		_ = opts.Set(k, v, 0)
	}
	return opts
}

// dictPairs renders d's entries as sorted "key=value" strings for logging.
func dictPairs(d *astiav.Dictionary) []string {
	if d == nil {
		return nil
	}
	var pairs []string
	var prev *astiav.DictionaryEntry
	flags := astiav.NewDictionaryFlags(astiav.DictionaryFlagIgnoreSuffix)
	for {
		e := d.Get("", prev, flags)
		if e == nil {
			break
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", e.Key(), e.Value()))
		prev = e
	}
	sort.Strings(pairs)
	return pairs
}

// joinDict renders d's entries on one line for logging.
func joinDict(d *astiav.Dictionary) string {
	return strings.Join(dictPairs(d), " ")
}
