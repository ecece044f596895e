package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cookielab "github.com/malumohit/cookie-lab-pipeline"
)

var (
	snapshotProfile string
	snapshotAll     bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Dump affiliate cookies from the local Firefox store",
	Long: `snapshot reads the at-rest Firefox cookie store (no running browser needed)
and prints the recognized affiliate cookies. Useful for manual Firefox runs
and for checking the store before and after a checkout by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := &cookielab.FirefoxStore{Profile: snapshotProfile}
		cookies, err := store.Cookies(cmd.Context())
		if err != nil {
			return err
		}

		spec := cookielab.DefaultTargets()
		if m, err := cookielab.LoadMatrix(matrixPath); err == nil {
			spec = m.TargetSpec()
		}

		shown := 0
		for _, c := range cookies {
			key, ok := spec.Classify(c.Name)
			if !ok && !snapshotAll {
				continue
			}
			label := c.Name
			if ok && key != c.Name {
				label = fmt.Sprintf("%s (%s)", c.Name, key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\t%s\n", label, c.Domain, c.Path, cookielab.Digest(c.Value))
			shown++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d cookies shown\n", shown, len(cookies))
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotProfile, "profile", "", "Firefox profile name, directory, or cookies.sqlite path")
	snapshotCmd.Flags().BoolVar(&snapshotAll, "all", false, "show every cookie, not just affiliate targets")
}
