// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scenario

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ava-labs/meshtrust"
)

// A mote log line looks like
//
//	01:02.345	ID:3	Rx: '7|1|4|61234' from node: '4' -> attested
//
// where the quoted fields are message number, origin, attester and
// broadcast time.
var logLine = regexp.MustCompile(
	`^(?P<timestamp>\d+:\d+\.\d+)\s+ID:(?P<node>\d+)\s+` +
		`(?P<action>[A-Za-z]+): '(?P<message>\d+)\|(?P<origin>\d+)\|(?P<attester>\d+)\|(?P<broadcast>\d+)'` +
		`(?: from node: '(?P<from>\d+)')?`)

var (
	timestampGroup = logLine.SubexpIndex("timestamp")
	nodeGroup      = logLine.SubexpIndex("node")
	actionGroup    = logLine.SubexpIndex("action")
	messageGroup   = logLine.SubexpIndex("message")
	originGroup    = logLine.SubexpIndex("origin")
	attesterGroup  = logLine.SubexpIndex("attester")
	broadcastGroup = logLine.SubexpIndex("broadcast")
	fromGroup      = logLine.SubexpIndex("from")
)

// LogStats summarises a parse.
type LogStats struct {
	Lines   int
	Tx      int
	Rx      int
	Ignored int
}

// ParseLog reads the ordered Tx and Rx events of a mote log. Lines that do
// not match the log format, and actions other than Tx and Rx, are ignored.
func ParseLog(r io.Reader, progress meshtrust.ProgressTask) ([]meshtrust.Event, LogStats, error) {
	var (
		events []meshtrust.Event
		stats  LogStats
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		stats.Lines++
		if progress != nil {
			progress.Advance(int64(len(line) + 1))
		}

		e, err := parseLine(line)
		if err != nil {
			return nil, stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		switch e.(type) {
		case meshtrust.TxEvent:
			stats.Tx++
		case meshtrust.RxEvent:
			stats.Rx++
		default:
			stats.Ignored++
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, err
	}
	return events, stats, nil
}

// parseLine returns a nil event for lines that carry no Tx or Rx record.
func parseLine(line string) (meshtrust.Event, error) {
	m := logLine.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	timestamp, err := ParseTimestamp(m[timestampGroup])
	if err != nil {
		return nil, err
	}
	// The pattern guarantees digits; only overflow can fail below.
	node, err := strconv.ParseInt(m[nodeGroup], 10, 64)
	if err != nil {
		return nil, err
	}
	message, err := strconv.ParseUint(m[messageGroup], 10, 64)
	if err != nil {
		return nil, err
	}
	broadcast, err := strconv.ParseUint(m[broadcastGroup], 10, 64)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(m[actionGroup]) {
	case "tx":
		return meshtrust.TxEvent{
			Timestamp:     timestamp,
			Node:          meshtrust.NodeID(node),
			MessageNum:    message,
			BroadcastTime: broadcast,
		}, nil
	case "rx":
		origin, err := strconv.ParseInt(m[originGroup], 10, 64)
		if err != nil {
			return nil, err
		}
		attester, err := strconv.ParseInt(m[attesterGroup], 10, 64)
		if err != nil {
			return nil, err
		}
		rx := meshtrust.RxEvent{
			Timestamp:     timestamp,
			Node:          meshtrust.NodeID(node),
			MessageNum:    message,
			Origin:        meshtrust.NodeID(origin),
			Attester:      meshtrust.NodeID(attester),
			BroadcastTime: broadcast,
		}
		if m[fromGroup] != "" {
			from, err := strconv.ParseInt(m[fromGroup], 10, 64)
			if err != nil {
				return nil, err
			}
			fromID := meshtrust.NodeID(from)
			rx.From = &fromID
		}
		return rx, nil
	default:
		return nil, nil
	}
}

// ParseTimestamp converts a "minutes:seconds" simulation timestamp into
// seconds.
func ParseTimestamp(s string) (float64, error) {
	minutes, seconds, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	m, err := strconv.ParseFloat(minutes, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	sec, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return m*60 + sec, nil
}

// LogFile is a meshtrust.TraceSource reading a mote log from disk.
type LogFile struct {
	Path     string
	Logger   meshtrust.Logger
	Progress meshtrust.Progress
}

func (l *LogFile) Events() ([]meshtrust.Event, error) {
	logger, progress := l.Logger, l.Progress
	if logger == nil {
		logger = meshtrust.NopLogger
	}
	if progress == nil {
		progress = meshtrust.NoProgress
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	task := progress.Start("Parsing log", size)
	defer task.Done()

	events, stats, err := ParseLog(f, task)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	logger.Info("Parsed log",
		zap.String("path", l.Path),
		zap.Int("lines", stats.Lines),
		zap.Int("tx", stats.Tx),
		zap.Int("rx", stats.Rx),
		zap.Int("ignored", stats.Ignored))
	return events, nil
}
