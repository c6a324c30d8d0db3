package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed scaffold
var scaffold embed.FS

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a gantry project in --dir",
		Long:  `Writes gantry.yaml, sample slot types, agents and a feature pipeline. Existing files are left untouched.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			written, err := writeScaffold(dir)
			for _, p := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", p)
			}
			return err
		},
	}
}

// writeScaffold copies the embedded project into dir and returns the files it
// created, relative to dir.
func writeScaffold(dir string) ([]string, error) {
	var written []string
	err := fs.WalkDir(scaffold, "scaffold", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepathRel("scaffold", p)
		target := filepath.Join(dir, filepath.FromSlash(rel))

		if _, err := os.Stat(target); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		data, err := scaffold.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})
	return written, err
}

func filepathRel(base, p string) (string, error) {
	rel, err := filepath.Rel(base, p)
	return path.Clean(filepath.ToSlash(rel)), err
}
