// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/bakelite/pkg/capture"
	"github.com/Thermoquad/bakelite/pkg/schema"
	"github.com/Thermoquad/bakelite/pkg/wire"
	"github.com/spf13/cobra"
)

var (
	sniffInput       string
	sniffPort        string
	sniffBaud        int
	sniffURL         string
	sniffUsername    string
	sniffNoSSLVerify bool
	sniffRecord      string
	sniffTUI         bool
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Decode live protocol traffic",
	Long: `Continuously decode frames from a serial port or WebSocket bridge
using a protocol definition, and display each message with its decoded
fields.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the
BAKELITE_PASSWORD environment variable, or prompted interactively.

With --record, every decoded frame (and every decode error) is
appended to a CBOR capture log for later replay.`,
	RunE: runSniff,
}

func init() {
	rootCmd.AddCommand(sniffCmd)
	sniffCmd.Flags().StringVarP(&sniffInput, "input", "i", "", "Protocol definition file")
	sniffCmd.Flags().StringVarP(&sniffPort, "port", "p", "", "Serial port device")
	sniffCmd.Flags().IntVarP(&sniffBaud, "baud", "b", 0, "Baud rate (serial only)")
	sniffCmd.Flags().StringVarP(&sniffURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	sniffCmd.Flags().StringVar(&sniffUsername, "username", "", "Username for HTTP Basic auth")
	sniffCmd.Flags().BoolVar(&sniffNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	sniffCmd.Flags().StringVar(&sniffRecord, "record", "", "Append decoded frames to a CBOR capture log")
	sniffCmd.Flags().BoolVar(&sniffTUI, "tui", false, "Show a live TUI instead of scrolling output")
	sniffCmd.MarkFlagRequired("input")
}

func runSniff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := loadInput(sniffInput)
	if s.Protocol == nil {
		return fmt.Errorf("%s has no protocol block", sniffInput)
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	proto, err := wire.NewProtocol(s, bufio.NewReader(conn), conn)
	if err != nil {
		return err
	}

	var recorder *capture.Writer
	if sniffRecord != "" {
		file, err := os.OpenFile(sniffRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer file.Close()
		recorder = capture.NewWriter(file)
	}

	if sniffTUI {
		return runSniffTUI(s, proto, connInfo, recorder)
	}

	fmt.Printf("Bakelite - Protocol Sniffer\n")
	fmt.Printf("Definition: %s\n", sniffInput)
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string, 64)
	go func() {
		for {
			line, ok := pollOnce(s, proto, recorder)
			if !ok {
				close(lines)
				return
			}
			if line != "" {
				lines <- line
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				fmt.Printf("\nConnection closed. %s\n", proto.Stats())
				return nil
			}
			fmt.Print(line)
		case <-interrupt:
			fmt.Printf("\n%s\n", proto.Stats())
			return nil
		}
	}
}

// pollOnce advances the dispatcher by one byte and returns a rendered
// log line for a completed frame or decode error. ok is false when the
// connection is gone.
func pollOnce(s *schema.Schema, proto *wire.Protocol, recorder *capture.Writer) (string, bool) {
	rcv, err := proto.Poll()
	now := time.Now()

	if err != nil {
		if err == ErrConnectionClosed {
			return "", false
		}
		record(recorder, &capture.Record{
			TimeMicros: now.UnixMicro(),
			ID:         -1,
			Err:        err.Error(),
		})
		return fmt.Sprintf("[%s] ERROR: %v\n", now.Format("15:04:05.000"), err), true
	}
	if rcv == nil {
		return "", true
	}

	record(recorder, &capture.Record{
		TimeMicros: now.UnixMicro(),
		ID:         rcv.ID,
		Name:       rcv.Name,
		Payload:    append([]byte(nil), rcv.Payload...),
	})

	if rcv.Name == "" {
		return FormatFrame(s, now, rcv.ID, "", nil, len(rcv.Payload)), true
	}
	fields, err := proto.Decode(rcv)
	if err != nil {
		return fmt.Sprintf("[%s] ERROR decoding %s: %v\n", now.Format("15:04:05.000"), rcv.Name, err), true
	}
	return FormatFrame(s, now, rcv.ID, rcv.Name, fields, len(rcv.Payload)), true
}

func record(w *capture.Writer, r *capture.Record) {
	if w == nil {
		return
	}
	if err := w.Write(r); err != nil {
		fmt.Fprintf(os.Stderr, "capture write failed: %v\n", err)
	}
}
