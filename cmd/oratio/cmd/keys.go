package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API keys and settings",
	Long: `Stores provider API keys in the local key/value store. Environment
variables still take precedence over stored keys at resolution time.`,
}

var keyDescription string

func init() {
	rootCmd.AddCommand(keysCmd)

	setCmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.KeyValue().Set(cmd.Context(), args[0], args[1], keyDescription); err != nil {
				return err
			}
			fmt.Printf("Stored %s\n", args[0])
			return nil
		},
	}
	setCmd.Flags().StringVar(&keyDescription, "description", "", "free-text description")
	keysCmd.AddCommand(setCmd)

	keysCmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			value, err := store.KeyValue().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			pairs, err := store.KeyValue().List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tDESCRIPTION\tUPDATED")
			for _, pair := range pairs {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					pair.Key, pair.Description, pair.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.KeyValue().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	})
}
