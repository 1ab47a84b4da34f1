/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/flowsketch/slidinghll-go/ingest"
	"github.com/flowsketch/slidinghll-go/slidinghll"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ParamConfig         = "config"
	ParamMemory         = "memory"
	ParamFile           = "file"
	ParamText           = "text"
	ParamVerify         = "verify"
	ParamKeyMode        = "key-mode"
	ParamQUICPort       = "quic-port"
	ParamShortDCIDLen   = "short-dcid-len"
	ParamHasher         = "hasher"
	ParamWindows        = "windows"
	ParamReportInterval = "report-interval"
	ParamMetricsAddr    = "metrics-addr"
	ParamNoCorrection   = "no-correction"
	ParamLogLevel       = "log-level"
	ParamInteractive    = "interactive"
	ParamClock          = "clock"

	EnvPrefix = "SLIDINGHLL"

	DefaultMemory         = 1024
	DefaultReportInterval = 10 * time.Second

	ClockStream = "stream"
	ClockWall   = "wall"
)

var DefaultWindows = []string{"10s", "1m", "5m"}

type Config struct {
	Memory         int
	PcapFile       string
	TextFile       string
	Verify         bool
	Pcap           ingest.PcapOptions
	Hasher         slidinghll.Hasher
	Windows        []slidinghll.Window
	ReportInterval time.Duration
	MetricsAddr    string
	Correction     bool
	LogLevel       logrus.Level
	Interactive    bool
	Clock          string
}

func newFlagSet(output io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("slidinghll", pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.String(ParamConfig, "", "configuration file (yaml, toml or json)")
	flags.IntP(ParamMemory, "m", DefaultMemory, "amount of buckets in memory to use, a power of 2 of at least 16")
	flags.StringP(ParamFile, "f", "", "read packets from a .pcap or .pcapng file")
	flags.String(ParamText, "", "read \"<unix seconds> <identifier>\" lines from a file, - for stdin")
	flags.BoolP(ParamVerify, "v", false, "also count identifiers exactly, to verify the estimates")
	flags.String(ParamKeyMode, string(ingest.KeyModeQUICDCID), "packet key: quic-dcid or five-tuple")
	flags.Uint16(ParamQUICPort, ingest.DefaultQUICPort, "UDP port of QUIC traffic, 0 for any")
	flags.Int(ParamShortDCIDLen, ingest.DefaultShortHeaderDCIDLen, "connection ID length of short header QUIC packets")
	flags.String(ParamHasher, slidinghll.HasherSHA256, "identifier hash: sha256, murmur3 or xxhash")
	flags.StringSlice(ParamWindows, DefaultWindows, "windows to report, as durations or \"all\"")
	flags.Duration(ParamReportInterval, DefaultReportInterval, "interval between estimate reports, 0 to disable")
	flags.String(ParamMetricsAddr, "", "serve Prometheus metrics on this address")
	flags.Bool(ParamNoCorrection, false, "disable the small range correction")
	flags.String(ParamLogLevel, logrus.InfoLevel.String(), "log level")
	flags.BoolP(ParamInteractive, "i", false, "read console commands from stdin")
	flags.String(ParamClock, ClockStream, "query time: stream (latest event timestamp) or wall")
	return flags
}

// loadConfig merges flags, environment and the optional configuration file, in that
// order of precedence.
func loadConfig(args []string, output io.Writer) (*Config, error) {
	flags := newFlagSet(output)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	if path := v.GetString(ParamConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	return configFromViper(v)
}

func configFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Memory:         v.GetInt(ParamMemory),
		PcapFile:       v.GetString(ParamFile),
		TextFile:       v.GetString(ParamText),
		Verify:         v.GetBool(ParamVerify),
		ReportInterval: v.GetDuration(ParamReportInterval),
		MetricsAddr:    v.GetString(ParamMetricsAddr),
		Correction:     !v.GetBool(ParamNoCorrection),
		Interactive:    v.GetBool(ParamInteractive),
		Clock:          v.GetString(ParamClock),
	}

	if cfg.PcapFile == "" && cfg.TextFile == "" {
		return nil, errors.New("one of --file or --text is required")
	}
	if cfg.PcapFile != "" && cfg.TextFile != "" {
		return nil, errors.New("--file and --text are mutually exclusive")
	}
	if cfg.Interactive && cfg.TextFile == "-" {
		return nil, errors.New("--interactive needs stdin, it cannot be combined with --text -")
	}
	if cfg.Clock != ClockStream && cfg.Clock != ClockWall {
		return nil, fmt.Errorf("unknown clock %q", cfg.Clock)
	}
	if cfg.ReportInterval < 0 {
		return nil, fmt.Errorf("report interval cannot be negative: %s", cfg.ReportInterval)
	}

	keyMode, err := ingest.ParseKeyMode(v.GetString(ParamKeyMode))
	if err != nil {
		return nil, err
	}
	port := v.GetUint(ParamQUICPort)
	if port > 65535 {
		return nil, fmt.Errorf("invalid QUIC port: %d", port)
	}
	cfg.Pcap = ingest.PcapOptions{
		KeyMode:            keyMode,
		QUICPort:           uint16(port),
		ShortHeaderDCIDLen: v.GetInt(ParamShortDCIDLen),
	}

	if cfg.Hasher, err = slidinghll.HasherByName(v.GetString(ParamHasher)); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = logrus.ParseLevel(v.GetString(ParamLogLevel)); err != nil {
		return nil, err
	}
	// "1m" and "60" are the same window and would collide as metric labels
	seen := make(map[slidinghll.Window]bool)
	for _, s := range v.GetStringSlice(ParamWindows) {
		w, err := parseWindow(s)
		if err != nil {
			return nil, err
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		cfg.Windows = append(cfg.Windows, w)
	}
	return cfg, nil
}

// parseWindow accepts "all", a Go duration such as "90s", or a plain number of seconds.
func parseWindow(s string) (slidinghll.Window, error) {
	s = strings.TrimSpace(s)
	if s == "all" {
		return slidinghll.Unbounded(), nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return slidinghll.Last(secs)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return slidinghll.Window{}, fmt.Errorf("%w: %q is neither \"all\", a duration nor a number of seconds", slidinghll.ErrInvalidWindow, s)
	}
	return slidinghll.LastDuration(d)
}
