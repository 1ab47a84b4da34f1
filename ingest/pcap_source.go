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

package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/flowsketch/slidinghll-go/slidinghll"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// KeyMode selects what identifies a distinct item in a packet trace.
type KeyMode string

const (
	// KeyModeQUICDCID keys QUIC packets by destination connection ID.
	KeyModeQUICDCID KeyMode = "quic-dcid"
	// KeyModeFiveTuple keys TCP and UDP packets by their direction-normalised 5-tuple.
	KeyModeFiveTuple KeyMode = "five-tuple"

	DefaultQUICPort = 443
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// ParseKeyMode validates s as a KeyMode.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case KeyModeQUICDCID, KeyModeFiveTuple:
		return KeyMode(s), nil
	default:
		return "", fmt.Errorf("unknown key mode %q, expected %q or %q", s, KeyModeQUICDCID, KeyModeFiveTuple)
	}
}

type PcapOptions struct {
	KeyMode KeyMode

	// QUICPort restricts KeyModeQUICDCID to UDP packets from or to this port. 0 accepts any port.
	QUICPort uint16

	// ShortHeaderDCIDLen is the connection ID length assumed for short header packets.
	ShortHeaderDCIDLen int
}

// DefaultPcapOptions keys QUIC traffic on port 443 by DCID.
func DefaultPcapOptions() PcapOptions {
	return PcapOptions{
		KeyMode:            KeyModeQUICDCID,
		QUICPort:           DefaultQUICPort,
		ShortHeaderDCIDLen: DefaultShortHeaderDCIDLen,
	}
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// PcapSource reads a pcap or pcapng trace and yields one event per keyed packet.
type PcapSource struct {
	reader  packetReader
	closer  io.Closer
	opts    PcapOptions
	packets int
	skipped int
}

// NewPcapSource reads a trace from r. The file format is detected from its magic number.
func NewPcapSource(r io.Reader, opts PcapOptions) (*PcapSource, error) {
	if _, err := ParseKeyMode(string(opts.KeyMode)); err != nil {
		return nil, err
	}
	if opts.KeyMode == KeyModeQUICDCID && (opts.ShortHeaderDCIDLen <= 0 || opts.ShortHeaderDCIDLen > maxQUICConnIDLen) {
		return nil, fmt.Errorf("short header DCID length must be between 1 and %d: %d", maxQUICConnIDLen, opts.ShortHeaderDCIDLen)
	}

	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	var reader packetReader
	if bytes.Equal(magic, pcapngMagic) {
		reader, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		reader, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}

	s := &PcapSource{reader: reader, opts: opts}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func (s *PcapSource) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			return Event{}, err
		}
		s.packets++
		packet := gopacket.NewPacket(data, s.reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		id, ok := s.key(packet)
		if !ok {
			s.skipped++
			continue
		}
		return Event{Timestamp: slidinghll.Seconds(ci.Timestamp), ID: id}, nil
	}
}

func (s *PcapSource) key(packet gopacket.Packet) ([]byte, bool) {
	switch s.opts.KeyMode {
	case KeyModeFiveTuple:
		return fiveTupleKey(packet)
	default:
		return s.quicKey(packet)
	}
}

func (s *PcapSource) quicKey(packet gopacket.Packet) ([]byte, bool) {
	udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		return nil, false
	}
	port := layers.UDPPort(s.opts.QUICPort)
	if s.opts.QUICPort != 0 && udp.SrcPort != port && udp.DstPort != port {
		return nil, false
	}
	dcid, ok := QUICDestConnID(udp.Payload, s.opts.ShortHeaderDCIDLen)
	if !ok {
		return nil, false
	}
	// keyed by the hex form, the way capture tools print connection IDs
	return []byte(hex.EncodeToString(dcid)), true
}

func fiveTupleKey(packet gopacket.Packet) ([]byte, bool) {
	network := packet.NetworkLayer()
	if network == nil {
		return nil, false
	}
	netFlow := network.NetworkFlow()

	var proto, srcPort, dstPort string
	switch t := packet.TransportLayer().(type) {
	case *layers.UDP:
		proto, srcPort, dstPort = "udp", strconv.Itoa(int(t.SrcPort)), strconv.Itoa(int(t.DstPort))
	case *layers.TCP:
		proto, srcPort, dstPort = "tcp", strconv.Itoa(int(t.SrcPort)), strconv.Itoa(int(t.DstPort))
	default:
		return nil, false
	}

	a := netFlow.Src().String() + "/" + srcPort
	b := netFlow.Dst().String() + "/" + dstPort
	if b < a {
		a, b = b, a
	}
	return []byte(proto + " " + a + " " + b), true
}

// Packets returns the number of packets read, and how many of them yielded no key.
func (s *PcapSource) Packets() (read int, skipped int) {
	return s.packets, s.skipped
}

func (s *PcapSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
