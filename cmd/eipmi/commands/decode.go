package commands

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	codecmetrics "github.com/olle/eipmi/internal/metrics"
	"github.com/olle/eipmi/internal/rmcp"
)

func decodeCmd() *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "decode [frame]...",
		Short: "Decode hex-encoded RMCP frames",
		Long: `Decode hex-encoded RMCP frames and print their contents.

Frames are given as arguments or, with no arguments, read one per line
from stdin. Whitespace inside a frame is ignored, so captures pasted
from packet dumps work as-is. Authenticated session frames are verified
against the configured password.`,
		RunE: func(_ *cobra.Command, args []string) error {
			return runDecode(args, stats)
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "print decode counters after processing")

	return cmd
}

func runDecode(args []string, stats bool) error {
	frames := args
	if len(frames) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				frames = append(frames, line)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	collector := codecmetrics.NewCollector(reg)

	opts := rmcp.DecodeOptions{Password: []byte(cfg.Auth.Password)}

	var failed int

	for i, raw := range frames {
		buf, err := hex.DecodeString(stripSpaces(raw))
		if err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}

		frame, err := rmcp.DecodeFrame(buf, opts)
		collector.ObserveDecode(frame, err)

		if err != nil {
			failed++
			fmt.Printf("frame %d: error: %v\n", i+1, err)

			continue
		}

		printFrame(i+1, frame)
	}

	if stats {
		printStats(reg)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed to decode", failed, len(frames))
	}

	return nil
}

func printFrame(n int, frame *rmcp.Frame) {
	fmt.Printf("frame %d: class=%s seq=%#02x\n", n, frame.Header.Class, frame.Header.Sequence)

	switch p := frame.Payload.(type) {
	case *rmcp.Ping:
		fmt.Printf("  ping tag=%d\n", p.Tag)
	case *rmcp.Pong:
		fmt.Printf("  pong tag=%d iana=%d asf=%d ipmi=%s\n",
			p.Tag, p.IANA, p.ASFVersion(), supported(p.SupportsIPMI()))
	case rmcp.ACK:
		fmt.Printf("  ack\n")
	case *rmcp.IPMIPacket:
		printIPMI(p)
	}
}

func printIPMI(pkt *rmcp.IPMIPacket) {
	fmt.Printf("  session auth=%s seq=%d id=%#08x\n",
		pkt.Session.AuthType, pkt.Session.Sequence, pkt.Session.SessionID)
	fmt.Printf("  message netfn=%s cmd=%#02x rq=%#02x/%d rs=%#02x/%d seq=%d\n",
		pkt.Message.NetFn, pkt.Message.Command,
		pkt.Message.RequesterAddr, pkt.Message.RequesterLUN,
		pkt.Message.ResponderAddr, pkt.Message.ResponderLUN,
		pkt.Message.Sequence)

	if len(pkt.Message.Data) > 0 {
		fmt.Printf("  data %s\n", hex.EncodeToString(pkt.Message.Data))
	}
}

func printStats(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("gather decode counters", "error", err)

		return
	}

	fmt.Println("counters:")

	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}

			fmt.Printf("  %s{%s} %d\n",
				fam.GetName(), strings.Join(labels, ","), int(m.GetCounter().GetValue()))
		}
	}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t':
			return -1
		}

		return r
	}, s)
}
