package commands

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/olle/eipmi/internal/rmcp"
)

func pingCmd() *cobra.Command {
	var tag uint8

	cmd := &cobra.Command{
		Use:   "ping <host>",
		Short: "Send an ASF presence ping and report the responder's capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPing(args[0], tag)
		},
	}

	cmd.Flags().Uint8Var(&tag, "tag", 0, "message tag correlating the pong")

	return cmd
}

// runPing performs one bounded ping/pong exchange. The transport lives
// here, not in the codec: one datagram out, one in, one deadline.
func runPing(host string, tag uint8) error {
	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Target.Port))

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(cfg.Target.Timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	buf := make([]byte, rmcp.PingSize)
	n, err := rmcp.MarshalPing(rmcp.NewHeader(rmcp.ClassASF), rmcp.Ping{Tag: tag}, buf)
	if err != nil {
		return fmt.Errorf("encode ping: %w", err)
	}

	logger.Debug("sending presence ping",
		slog.String("target", addr),
		slog.Int("tag", int(tag)),
	)

	if _, err := conn.Write(buf[:n]); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}

	resp := make([]byte, rmcp.MaxFrameSize)
	rn, err := conn.Read(resp)
	if err != nil {
		return fmt.Errorf("await pong from %s: %w", addr, err)
	}

	frame, err := rmcp.DecodeFrame(resp[:rn], rmcp.DecodeOptions{})
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	pong, ok := frame.Payload.(*rmcp.Pong)
	if !ok {
		return fmt.Errorf("unexpected %T response from %s", frame.Payload, addr)
	}
	if pong.Tag != tag {
		return fmt.Errorf("pong tag %d does not match ping tag %d", pong.Tag, tag)
	}

	fmt.Printf("%s is present\n", host)
	fmt.Printf("  IANA:         %d\n", pong.IANA)
	fmt.Printf("  ASF version:  %d.0\n", pong.ASFVersion())
	fmt.Printf("  IPMI:         %s\n", supported(pong.SupportsIPMI()))

	return nil
}

func supported(ok bool) string {
	if ok {
		return "supported"
	}

	return "not supported"
}
