package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olle/eipmi/internal/ipmi"
	"github.com/olle/eipmi/internal/rmcp"
)

func requestCmd() *cobra.Command {
	var (
		netFn     uint8
		command   uint8
		data      string
		sessionID uint32
		seq       uint32
		msgSeq    uint8
	)

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Encode an IPMI request frame and print it as hex",
		Long: `Encode a single IPMI request frame and print it as hex.

The frame is built from the configured auth type and password, so the
output is exactly the datagram a session layer would put on the wire.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRequest(netFn, command, data, sessionID, seq, msgSeq)
		},
	}

	cmd.Flags().Uint8Var(&netFn, "netfn", uint8(ipmi.NetFnAppReq), "network function code")
	cmd.Flags().Uint8Var(&command, "cmd", 0x01, "command byte")
	cmd.Flags().StringVar(&data, "data", "", "command data as hex")
	cmd.Flags().Uint32Var(&sessionID, "session-id", 0, "BMC-assigned session ID")
	cmd.Flags().Uint32Var(&seq, "session-seq", 0, "session sequence number")
	cmd.Flags().Uint8Var(&msgSeq, "seq", 0, "requester sequence number (0-63)")

	return cmd
}

func runRequest(netFn, command uint8, data string, sessionID, seq uint32, msgSeq uint8) error {
	payload, err := hex.DecodeString(data)
	if err != nil {
		return fmt.Errorf("command data: %w", err)
	}

	typ, err := cfg.Auth.AuthType()
	if err != nil {
		return err
	}

	session := &ipmi.SessionHeader{
		AuthType:  typ,
		Sequence:  seq,
		SessionID: sessionID,
	}
	msg := &ipmi.Message{
		ResponderAddr: ipmi.BMCAddr,
		NetFn:         ipmi.NetFn(netFn),
		RequesterAddr: ipmi.RemoteConsoleAddr,
		Sequence:      msgSeq,
		Command:       command,
		Data:          payload,
	}

	buf := make([]byte, rmcp.MaxFrameSize)

	n, err := rmcp.MarshalIPMIRequest(rmcp.NewHeader(rmcp.ClassIPMI), session,
		[]byte(cfg.Auth.Password), msg, buf)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	fmt.Println(hex.EncodeToString(buf[:n]))

	return nil
}
