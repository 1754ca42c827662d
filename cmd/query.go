package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/encodeous/strand/link"
	"github.com/encodeous/strand/state"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:     "query <forwarding socket> <address>",
	Aliases: []string{"q"},
	Short:   "Asks a running strand for the next hop towards an address",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			fmt.Println("Usage: strand query <forwarding socket> <address>")
			return
		}
		dst, err := parseAddress(args[1])
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		nh, err := link.Query(context.Background(), args[0], dst, timeout)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Println(describeNextHop(dst, nh))
	},
	GroupID: "tools",
}

func parseAddress(s string) (state.Address, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return state.Unknown, fmt.Errorf("invalid address %q: %w", s, err)
	}
	a := state.Address(v)
	if !a.Valid() {
		return state.Unknown, fmt.Errorf("address %d is reserved", v)
	}
	return a, nil
}

func describeNextHop(dst, nh state.Address) string {
	if nh == state.Unknown {
		return fmt.Sprintf("no route to %s", dst)
	}
	return fmt.Sprintf("%s via %s", dst, nh)
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Duration("timeout", 2*time.Second, "How long to wait for the daemon to answer")
}
