package kv

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long: `Sets the value for a key. The value is read as a JSON literal: 42 is stored as int, 1.5 as float, true as bool, [1,2] and {"a":1} as composite.
Values that are no valid JSON are stored as plain strings, --raw stores the value as string in any case.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			raw, _ := cmd.Flags().GetBool("raw")

			value, err := parseValue(args[1], raw)
			if err != nil {
				return err
			}

			if err := rpcStore.Set(key, value); err != nil {
				return err
			}
			fmt.Printf("set %s (%s) successfully\n", key, value.Kind())
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, ok, err := rpcStore.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}

			text, err := envelope.FormatJSON(value)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, type=%s, value=%s\n", key, value.Kind(), text)
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:     "rm [key]",
		Aliases: []string{"del"},
		Short:   "Removes a key value pair",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			existed, err := rpcStore.Remove(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, removed=%t\n", key, existed)
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Bool("raw", false, "Store the value as string without parsing it")
}

// parseValue converts a command line argument to an envelope
func parseValue(arg string, raw bool) (envelope.Envelope, error) {
	if raw {
		return envelope.String(arg), nil
	}

	value, err := envelope.ParseJSON([]byte(arg))
	if errors.Is(err, envelope.ErrSyntax) {
		return envelope.String(arg), nil
	}
	return value, err
}
