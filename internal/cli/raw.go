package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var (
	rawJSONParam string
	rawBody      string
	rawPost      bool
)

var rawCmd = &cobra.Command{
	Use:    "raw <endpoint>",
	Short:  "Issue a raw API call (debugging)",
	Args:   cobra.ExactArgs(1),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := current.client.Raw(cmd.Context(), args[0], rawJSONParam, rawBody, rawPost)
		if err != nil {
			return err
		}
		fmt.Println(string(pretty.Pretty([]byte(result))))
		return nil
	},
}

func init() {
	rawCmd.Flags().StringVarP(&rawJSONParam, "json", "j", "", "JSON query parameter")
	rawCmd.Flags().StringVarP(&rawBody, "body", "b", "", "JSON body for POST")
	rawCmd.Flags().BoolVarP(&rawPost, "post", "p", false, "use POST")
	rootCmd.AddCommand(rawCmd)
}
