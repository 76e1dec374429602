package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-latest"
)

// Set with -ldflags, e.g.
//
//	-X pysel/internal/cli.Version=1.2.0 -X pysel/internal/cli.ReleaseRepo=owner/pysel
var (
	Version = "dev"
	// ReleaseRepo is the GitHub "owner/name" that version --check asks.
	ReleaseRepo = ""
)

// releaseSource splits ReleaseRepo into owner and repository.
func releaseSource() (string, string, error) {
	if ReleaseRepo == "" {
		return "", "", errors.New("this build has no release repository configured")
	}
	owner, repo, ok := strings.Cut(ReleaseRepo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("release repository %q is not of the form owner/name", ReleaseRepo)
	}
	return owner, repo, nil
}

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the pysel version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, check)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}

type versionInfo struct {
	Version  string `json:"version"`
	Latest   string `json:"latest,omitempty"`
	Outdated bool   `json:"outdated,omitempty"`
}

func runVersion(cmd *cobra.Command, check bool) error {
	info := versionInfo{Version: Version}
	var owner, repo string
	if check {
		if Version == "dev" {
			return fmt.Errorf("development builds cannot be compared with releases")
		}
		var err error
		if owner, repo, err = releaseSource(); err != nil {
			return err
		}
		res, err := latest.Check(&latest.GithubTag{Owner: owner, Repository: repo}, Version)
		if err != nil {
			return fmt.Errorf("check latest release: %w", err)
		}
		info.Latest = res.Current
		info.Outdated = res.Outdated
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "pysel %s\n", info.Version)
	switch {
	case !check:
	case info.Outdated:
		fmt.Fprintf(out, "A new version is available: %s\n", info.Latest)
		fmt.Fprintf(out, "Download it from https://github.com/%s/%s/releases\n", owner, repo)
	default:
		fmt.Fprintln(out, "You are using the latest version.")
	}
	return nil
}
