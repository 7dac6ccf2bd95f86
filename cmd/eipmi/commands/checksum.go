package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olle/eipmi/internal/ipmi"
)

func checksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <hex>...",
		Short: "Compute the IPMB checksum over the given bytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			buf, err := hex.DecodeString(stripSpaces(strings.Join(args, "")))
			if err != nil {
				return fmt.Errorf("input: %w", err)
			}

			fmt.Printf("%#02x\n", ipmi.Checksum(buf))

			return nil
		},
	}
}
