package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/spf13/cobra"
)

// storeCommandSetup connects to the store for commands whose positional
// arguments are not a log file.
func storeCommandSetup(cmd *cobra.Command, _ []string) error {
	return storeSetup(cmd, nil)
}

// repoCmd groups record-level operations on the repository store.
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Read and write repository compilation records",
	Long: `Read and write the per-repository records kept in the repository store.

Subcommands:
  get    - Print the record of a repository as JSON
  add    - Record a clone attempt (first write wins)
  update - Replace the compiled Makefiles of a repository
  count  - Sum Makefiles and binaries over compiled repositories`,
}

var repoGetCmd = &cobra.Command{
	Use:     "get <owner/name>",
	Short:   "Print the stored record of a repository",
	Args:    cobra.ExactArgs(1),
	PreRunE: storeCommandSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireStore()
		if err != nil {
			return fmt.Errorf("cannot get repository: %w", err)
		}
		owner, name, err := contract.SplitRepo(args[0])
		if err != nil {
			return fmt.Errorf("cannot get repository: %w", err)
		}
		entry, err := store.Get(rootCtx, owner, name)
		if err != nil {
			return fmt.Errorf("cannot get repository: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("cannot get repository: %w: %s", contract.ErrRepoNotFound, args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("cannot print repository: %w", err)
		}
		return nil
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <owner/name>",
	Short: "Record a clone attempt for a repository",
	Long: `Create an uncompiled record for a repository. An existing record is left
untouched, so the first recorded clone attempt wins.

Examples:
  buildwatch repo add torvalds/linux --size 4096000
  buildwatch repo add someone/gone --clone-failed`,
	Args:    cobra.ExactArgs(1),
	PreRunE: storeCommandSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireStore()
		if err != nil {
			return fmt.Errorf("cannot add repository: %w", err)
		}
		owner, name, err := contract.SplitRepo(args[0])
		if err != nil {
			return fmt.Errorf("cannot add repository: %w", err)
		}
		cloneFailed, _ := cmd.Flags().GetBool("clone-failed")
		size, _ := cmd.Flags().GetInt64("size")
		if err := store.AddRepo(rootCtx, owner, name, !cloneFailed, size); err != nil {
			return fmt.Errorf("cannot add repository: %w", err)
		}
		cmd.Printf("Recorded %s.\n", args[0])
		return nil
	},
}

var repoUpdateCmd = &cobra.Command{
	Use:   "update <owner/name>",
	Short: "Replace the compiled Makefiles of a repository",
	Long: `Replace the Makefile entries of a repository and mark it compiled. The
entries are read as a JSON array of objects with directory, successful,
num_binaries, binaries and sha256 fields.

A non-empty stored list is only replaced by a list of the same length unless
--ignore-length-mismatch is given.

Examples:
  buildwatch repo update foo/bar --makefiles makefiles.json
  cat makefiles.json | buildwatch repo update foo/bar`,
	Args:    cobra.ExactArgs(1),
	PreRunE: storeCommandSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireStore()
		if err != nil {
			return fmt.Errorf("cannot update repository: %w", err)
		}
		owner, name, err := contract.SplitRepo(args[0])
		if err != nil {
			return fmt.Errorf("cannot update repository: %w", err)
		}
		path, _ := cmd.Flags().GetString("makefiles")
		makefiles, err := readMakefiles(path, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("cannot read Makefile entries: %w", err)
		}
		ignore, _ := cmd.Flags().GetBool("ignore-length-mismatch")
		if err := store.UpdateMakefile(rootCtx, owner, name, makefiles, ignore); err != nil {
			return fmt.Errorf("cannot update repository: %w", err)
		}
		cmd.Printf("Updated %s with %d Makefiles and %d binaries.\n", args[0], len(makefiles), schema.CountBinaries(makefiles))
		return nil
	},
}

var repoCountCmd = &cobra.Command{
	Use:     "count",
	Short:   "Sum Makefiles and binaries over compiled repositories",
	Args:    cobra.NoArgs,
	PreRunE: storeCommandSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := requireStore()
		if err != nil {
			return fmt.Errorf("cannot count records: %w", err)
		}
		makefiles, err := store.CountMakefiles(rootCtx)
		if err != nil {
			return fmt.Errorf("cannot count Makefiles: %w", err)
		}
		binaries, err := store.CountBinaries(rootCtx)
		if err != nil {
			return fmt.Errorf("cannot count binaries: %w", err)
		}
		cmd.Printf("Makefiles: %d\n", makefiles)
		cmd.Printf("Binaries:  %d\n", binaries)
		return nil
	},
}

// readMakefiles decodes Makefile entries from path, or from stdin when path is "-".
func readMakefiles(path string, stdin io.Reader) ([]schema.RepoMakefileEntry, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var makefiles []schema.RepoMakefileEntry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&makefiles); err != nil {
		return nil, fmt.Errorf("invalid Makefile entries: %w", err)
	}
	if makefiles == nil {
		makefiles = []schema.RepoMakefileEntry{}
	}
	return makefiles, nil
}
