package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flag getters for flags registered in init(). A lookup error means the flag
// name is misspelled, so they panic instead of returning it.

func mustGetBool(cmd *cobra.Command, name string) bool {
	return mustGet(cmd, name, cmd.Flags().GetBool)
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return mustGet(cmd, name, cmd.Flags().GetInt)
}

func mustGetString(cmd *cobra.Command, name string) string {
	return mustGet(cmd, name, cmd.Flags().GetString)
}

func mustGet[T any](cmd *cobra.Command, name string, get func(string) (T, error)) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("%s: flag error for --%s: %v", cmd.Name(), name, err))
	}
	return val
}
